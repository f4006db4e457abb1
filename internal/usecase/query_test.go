package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/llm"
	"docrag/internal/domain"
)

func TestIsGibberish(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     bool
	}{
		{"too short", "hi", true},
		{"long unbroken token", "asdkjhqwelkjzx", true},
		{"repeated character run", "heyyyy there", true},
		{"vowel starved", "zxc vbn mqw rty", true},
		{"no alpha run", "ae 12 ae 12", true},
		{"normal question", "who is on the passenger list", false},
		{"exactly four chars", "okay", false},
		{"twelve char token", "hello_please", false},
		{"three repeats allowed", "hmmm okay then", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGibberish(tt.question))
		})
	}
}

func TestNeedsRewrite(t *testing.T) {
	assert.True(t, needsRewrite("what about him"))
	assert.True(t, needsRewrite("and where did they travel afterwards"))
	assert.True(t, needsRewrite("then what happened to the second booking"))
	assert.True(t, needsRewrite("list tickets"))
	assert.False(t, needsRewrite("who booked the earliest ticket this month"))
}

func TestContextBlock(t *testing.T) {
	page := 2
	passages := []domain.ScoredPassage{
		{Passage: domain.Passage{Content: "first excerpt", Source: "/data/docs/report.pdf", Page: &page}},
		{Passage: domain.Passage{Content: "second excerpt", Source: "notes.txt"}},
	}

	block := ContextBlock(passages)
	assert.Contains(t, block, "[report.pdf | Page 3]\nfirst excerpt")
	assert.Contains(t, block, "[notes.txt | Page ?]\nsecond excerpt")
}

func TestAnswerRejectsGibberish(t *testing.T) {
	mock := &llm.Mock{Response: "should not be used"}
	p := NewQueryProcessor(NewRetriever(newTestManager(t, 5), nil), mock)

	result, err := p.Answer(context.Background(), "zx", nil)
	require.NoError(t, err)
	assert.True(t, result.Rejected)
	assert.Equal(t, RejectionMessage, result.Answer)
	assert.Empty(t, mock.Prompts, "rejected questions must not reach the model")
}

func TestAnswerUsesRetrievedContext(t *testing.T) {
	mock := &llm.Mock{Response: "The passenger is Alice."}
	p := NewQueryProcessor(NewRetriever(newTestManager(t, 5), nil), mock)

	result, err := p.Answer(context.Background(), "who is the passenger named on the first booking", nil)
	require.NoError(t, err)
	assert.False(t, result.Rejected)
	assert.Equal(t, "The passenger is Alice.", result.Answer)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "CONTEXT:")
	assert.Contains(t, mock.Prompts[0], NotFoundAnswer)
	assert.Contains(t, mock.Prompts[0], "who is the passenger named on the first booking")
}

func TestAnswerRewritesFollowUp(t *testing.T) {
	mock := &llm.Mock{Fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "REWRITTEN QUESTION:") {
			return "what about the return leg of the first booking", nil
		}
		return "It departs at noon.", nil
	}}
	p := NewQueryProcessor(NewRetriever(newTestManager(t, 5), nil), mock)

	history := []domain.ChatTurn{{Question: "when does the first booking depart", Answer: "At 9am."}}
	result, err := p.Answer(context.Background(), "what about the return", history)
	require.NoError(t, err)
	assert.Equal(t, "It departs at noon.", result.Answer)

	require.Len(t, mock.Prompts, 2)
	assert.Contains(t, mock.Prompts[0], "when does the first booking depart")
	// The answer prompt keeps the user's original wording.
	assert.Contains(t, mock.Prompts[1], "QUESTION:\nwhat about the return")
}

func TestAnswerRewriteSkippedWithoutHistory(t *testing.T) {
	mock := &llm.Mock{Response: "done"}
	p := NewQueryProcessor(NewRetriever(newTestManager(t, 5), nil), mock)

	_, err := p.Answer(context.Background(), "what about the return", nil)
	require.NoError(t, err)
	// No prior turn: only the answer prompt goes to the model.
	assert.Len(t, mock.Prompts, 1)
}
