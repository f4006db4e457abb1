package chunk

import "strings"

// defaultSeparators is the ordered list of split boundaries, coarsest
// first. The empty separator splits into characters, which is the
// hard-cut of last resort for text with no boundaries at all.
var defaultSeparators = []string{
	"\n\n\n",
	"\n\n",
	"\n- ",
	"\n• ",
	"\n",
	". ",
	" ",
	"",
}

// Splitter performs recursive-boundary splitting: try the coarsest
// separator first and recurse on oversized pieces with the next one.
// Every output chunk is at most Size characters unless the input has
// no separators left, in which case it is cut at Size exactly.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter with the given chunk size and overlap.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split breaks text into chunks of at most s.size characters with
// s.overlap characters shared between adjacent chunks.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the first separator that actually occurs in the text; the
	// empty separator always matches.
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	parts := splitKeeping(text, separator)

	var chunks []string
	var good []string

	for _, part := range parts {
		if len(part) <= s.size {
			good = append(good, part)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, hardCut(part, s.size)...)
			continue
		}
		chunks = append(chunks, s.split(part, remaining)...)
	}

	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}

	return chunks
}

// merge joins consecutive small pieces into chunks up to the target
// size, carrying overlap pieces into the next chunk.
func (s *Splitter) merge(parts []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, part := range parts {
		if total+len(part) > s.size && total > 0 {
			flush()
			// Drop from the front until the retained tail fits the
			// overlap budget.
			for total > s.overlap || (total+len(part) > s.size && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, part)
		total += len(part)
	}
	flush()

	return chunks
}

// splitKeeping splits text on sep, keeping the separator attached to
// the end of each piece so no characters are lost across boundaries.
func splitKeeping(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		parts := make([]string, len(runes))
		for i, r := range runes {
			parts[i] = string(r)
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts := make([]string, 0, len(raw))
	for i, piece := range raw {
		if i < len(raw)-1 {
			piece += sep
		}
		if piece != "" {
			parts = append(parts, piece)
		}
	}
	return parts
}

// hardCut slices text into size-length pieces with no boundary search.
func hardCut(text string, size int) []string {
	var out []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
