package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "summary"},
		{Role: "assistant", Content: "ok"},
	})
	assert.Equal(t, "be helpful", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "summary", contents[0].Parts[0].Text)
	assert.Equal(t, "model", contents[1].Role)
}

func TestGeminiConfig(t *testing.T) {
	cfg := geminiConfig(GenerateRequest{MaxTokens: 600, Temperature: 0.7}, "sys")
	assert.Equal(t, int32(600), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)
}

func TestGeminiTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "1. What drives churn?"},
			}},
		}},
	}
	assert.Equal(t, "1. What drives churn?", geminiText(resp))
	assert.Equal(t, "", geminiText(&genai.GenerateContentResponse{}))
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(fmt.Errorf("call: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow"}))
	assert.Equal(t, FailureRateLimit, Classify(err))

	err = classifyGeminiError(genai.APIError{Code: 403, Message: "API key not valid"})
	assert.Equal(t, FailureAuth, Classify(err))
}
