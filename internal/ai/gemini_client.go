package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

// GeminiClient implements Runtime on top of the Google Gen AI SDK.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a client for the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey string, httpTimeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errs.New(errs.ErrKindMissingCredential, "gemini api key is missing")
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: httpTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiClient{client: gc}, nil
}

// Generate sends one GenerateContent call. System messages become the
// system instruction; assistant turns use the "model" role.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "model cannot be empty")
	}
	system, contents := toGeminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, geminiConfig(req, system))
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	out := &GenerateResponse{
		Model:   req.Model,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: geminiText(resp)}}},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.PromptTokenCount + u.CandidatesTokenCount),
		}
	}
	return out, nil
}

func geminiConfig(req GenerateRequest, system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return cfg
}

func toGeminiContents(msgs []Message) (string, []*genai.Content) {
	var system []string
	var out []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			out = append(out, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return strings.Join(system, "\n\n"), out
}

// geminiText concatenates the non-thought text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func classifyGeminiError(err error) error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return classifyAPIError(&APIError{StatusCode: ae.Code, Code: ae.Status, Message: ae.Message}, 0)
	}
	var pe *genai.APIError
	if errors.As(err, &pe) && pe != nil {
		return classifyAPIError(&APIError{StatusCode: pe.Code, Code: pe.Status, Message: pe.Message}, 0)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &UnreachableError{Host: "generativelanguage.googleapis.com", Err: err}
}
