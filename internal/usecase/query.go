package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// RejectionMessage is returned verbatim for questions the gibberish
// filter throws out. Rejected questions never reach retrieval or the
// chat model.
const RejectionMessage = "Invalid or unclear question. Please rephrase."

// NotFoundAnswer is the sentinel the model is instructed to emit when
// the context does not contain the answer.
const NotFoundAnswer = "Not found in the document."

// continuationPrefixes mark follow-up questions that lean on earlier
// conversation and need rewriting into self-contained form.
var continuationPrefixes = []string{"and", "then", "what about", "make it"}

const rewritePromptTemplate = `Rewrite the CURRENT QUESTION so it is fully self-contained.

Rules:
- Use the PREVIOUS QUESTION only for clarification
- Do NOT add new facts
- Do NOT answer the question
- Output ONLY the rewritten question

PREVIOUS QUESTION:
%s

CURRENT QUESTION:
%s

REWRITTEN QUESTION:
`

const answerPromptTemplate = `You must answer strictly from the document excerpts.
If the answer is not present in the context, reply exactly: Not found in the document.

CONTEXT:
%s

QUESTION:
%s

ANSWER:
`

// QueryProcessor resolves one question: validate, rewrite if needed,
// retrieve, assemble the grounded prompt, and generate the answer.
type QueryProcessor struct {
	retriever *Retriever
	llm       port.LLM
}

// QueryResult is the outcome of processing one question.
type QueryResult struct {
	Answer string
	// Rejected marks answers produced by the gibberish filter; they
	// must not enter chat history.
	Rejected bool
}

// NewQueryProcessor creates a query processor.
func NewQueryProcessor(retriever *Retriever, llm port.LLM) *QueryProcessor {
	return &QueryProcessor{retriever: retriever, llm: llm}
}

// IsGibberish applies the low-information heuristics: too short, one
// long unbroken token, a character repeated four or more times in a
// row, vowel-starved text, or no run of three alphabetic characters.
func IsGibberish(text string) bool {
	text = strings.TrimSpace(text)

	if len(text) < 4 {
		return true
	}
	if !strings.Contains(text, " ") && len(text) > 12 {
		return true
	}
	if hasRepeatedRun(text, 4) {
		return true
	}

	vowels := 0
	for _, r := range strings.ToLower(text) {
		if strings.ContainsRune("aeiou", r) {
			vowels++
		}
	}
	if float64(vowels)/float64(len(text)) < 0.2 {
		return true
	}

	return !hasAlphaRun(text, 3)
}

// hasRepeatedRun reports whether any character repeats n or more
// times consecutively.
func hasRepeatedRun(text string, n int) bool {
	run := 0
	var prev rune
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// hasAlphaRun reports whether text contains n consecutive ASCII letters.
func hasAlphaRun(text string, n int) bool {
	run := 0
	for _, r := range text {
		if unicode.IsLetter(r) && r < 128 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// needsRewrite reports whether the question is likely context-dependent.
func needsRewrite(question string) bool {
	if len(strings.Fields(question)) <= 4 {
		return true
	}
	q := strings.ToLower(question)
	for _, prefix := range continuationPrefixes {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

// Answer resolves one question against the current index. history is
// the session's prior turns; the caller appends the new turn itself
// and only for non-rejected results.
func (p *QueryProcessor) Answer(ctx context.Context, question string, history []domain.ChatTurn) (QueryResult, error) {
	if IsGibberish(question) {
		log.Info("question rejected by gibberish filter", "question", question)
		return QueryResult{Answer: RejectionMessage, Rejected: true}, nil
	}

	searchQuestion := question
	if needsRewrite(question) {
		searchQuestion = p.rewrite(ctx, question, history)
	}

	passages, err := p.retriever.Retrieve(searchQuestion)
	if err != nil {
		return QueryResult{}, fmt.Errorf("retrieval failed: %w", err)
	}

	prompt := fmt.Sprintf(answerPromptTemplate, ContextBlock(passages), question)
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return QueryResult{}, fmt.Errorf("answer generation failed: %w", err)
	}

	return QueryResult{Answer: strings.TrimSpace(answer)}, nil
}

// rewrite asks the model to make a follow-up question self-contained,
// using the most recent prior question as the only context. Any
// failure falls back to the original question; a bad rewrite is worse
// than no rewrite.
func (p *QueryProcessor) rewrite(ctx context.Context, question string, history []domain.ChatTurn) string {
	if len(history) == 0 {
		return question
	}
	previous := history[len(history)-1].Question

	prompt := fmt.Sprintf(rewritePromptTemplate, previous, question)
	rewritten, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		log.Warn("query rewrite failed, using original question", "error", err)
		return question
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question
	}
	return rewritten
}

// ContextBlock renders retrieved passages for the prompt, each tagged
// with its citation. Page display is 1-based; "?" when unknown.
func ContextBlock(passages []domain.ScoredPassage) string {
	var b strings.Builder
	for _, sp := range passages {
		page := "?"
		if sp.Passage.Page != nil {
			page = fmt.Sprint(*sp.Passage.Page + 1)
		}
		fmt.Fprintf(&b, "[%s | Page %s]\n%s\n\n", filepath.Base(sp.Passage.Source), page, sp.Passage.Content)
	}
	return b.String()
}
