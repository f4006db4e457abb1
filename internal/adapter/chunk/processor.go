package chunk

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"docrag/internal/domain"
)

const (
	// minCleanChars and minCleanSpaces gate cleaned records; anything
	// shorter carries too little content to be worth embedding.
	minCleanChars  = 100
	minCleanSpaces = 20

	// minPassageChars drops truncation leftovers that are too short to
	// retrieve meaningfully.
	minPassageChars = 80
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Processor converts extracted records into embedding-ready passages:
// clean, split, truncate, filter. Process is pure and safe to run
// concurrently across records.
type Processor struct {
	splitter  *Splitter
	codec     Codec
	maxChars  int
	maxTokens int
}

// NewProcessor creates a chunk processor.
func NewProcessor(splitter *Splitter, codec Codec, maxChars, maxTokens int) *Processor {
	if maxChars <= 0 {
		maxChars = 4000
	}
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Processor{
		splitter:  splitter,
		codec:     codec,
		maxChars:  maxChars,
		maxTokens: maxTokens,
	}
}

// Clean collapses whitespace runs to single spaces and trims. Returns
// the empty string when the result is too short to chunk.
func Clean(text string) string {
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if len(text) < minCleanChars || strings.Count(text, " ") < minCleanSpaces {
		return ""
	}
	return text
}

// Truncate caps text at the character budget first, then at the token
// budget. The character cap runs first so the tokenizer never sees
// pathologically long input.
func (p *Processor) Truncate(text string) string {
	if len(text) > p.maxChars {
		text = text[:p.maxChars]
	}

	tokens := p.codec.Encode(text)
	if len(tokens) <= p.maxTokens {
		return text
	}
	return p.codec.Decode(tokens[:p.maxTokens])
}

// Process runs the full clean/split/truncate/filter sequence for one
// record. Passages shorter than the minimum are dropped silently.
func (p *Processor) Process(record domain.Record) []domain.Passage {
	text := Clean(record.Text)
	if text == "" {
		return nil
	}

	var passages []domain.Passage
	for _, piece := range p.splitter.Split(text) {
		content := p.Truncate(piece)
		if len(content) < minPassageChars {
			continue
		}
		passages = append(passages, domain.Passage{
			ID:      uuid.New().String(),
			Content: content,
			Source:  record.Source,
			Page:    record.Page,
		})
	}
	return passages
}
