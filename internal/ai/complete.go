package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
)

// Completion is the successful result of one completion call.
type Completion struct {
	Text      string
	Model     string
	RequestID string
	Usage     Usage
}

// FailureKind classifies why a completion call failed.
type FailureKind string

const (
	FailureAuth          FailureKind = "auth"
	FailureRateLimit     FailureKind = "rate_limit"
	FailureModelNotFound FailureKind = "model_not_found"
	FailureBadRequest    FailureKind = "bad_request"
	FailureQuota         FailureKind = "quota"
	FailureServer        FailureKind = "server"
	FailureUnreachable   FailureKind = "unreachable"
	FailureEmpty         FailureKind = "empty"
	FailureCanceled      FailureKind = "canceled"
	FailureUnknown       FailureKind = "unknown"
)

// CompletionError is returned by Complete for every failed call.
type CompletionError struct {
	Kind FailureKind
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ErrEmptyCompletion marks a response that carried no text.
var ErrEmptyCompletion = errors.New("completion service returned no content")

// ChatRequest turns a composed prompt into exactly one system and one user message.
func ChatRequest(model string, p prompt.Request) GenerateRequest {
	return GenerateRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
}

// Complete runs req on rt and returns the trimmed text or a *CompletionError.
// A missing credential is returned as is so callers can prompt for one.
func Complete(ctx context.Context, rt Runtime, req GenerateRequest) (Completion, error) {
	resp, err := rt.Generate(ctx, req)
	if err != nil {
		if errs.IsMissingCredential(err) {
			return Completion{}, err
		}
		return Completion{}, &CompletionError{Kind: Classify(err), Err: err}
	}
	var text string
	if resp != nil && len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		return Completion{}, &CompletionError{Kind: FailureEmpty, Err: ErrEmptyCompletion}
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return Completion{Text: text, Model: model, RequestID: resp.RequestID, Usage: resp.Usage}, nil
}

// Classify maps runtime errors to a FailureKind.
func Classify(err error) FailureKind {
	var (
		auth    *AuthError
		rate    *RateLimitError
		missing *ModelNotFoundError
		bad     *BadRequestError
		quota   *QuotaExceededError
		server  *ServerError
		unreach *UnreachableError
		api     *APIError
		nerr    net.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	case errors.As(err, &auth):
		return FailureAuth
	case errors.As(err, &rate):
		return FailureRateLimit
	case errors.As(err, &missing):
		return FailureModelNotFound
	case errors.As(err, &bad):
		return FailureBadRequest
	case errors.As(err, &quota):
		return FailureQuota
	case errors.As(err, &server):
		return FailureServer
	case errors.As(err, &unreach), errors.As(err, &nerr):
		return FailureUnreachable
	case errors.Is(err, ErrEmptyCompletion):
		return FailureEmpty
	case errors.As(err, &api) && api.StatusCode >= 500:
		return FailureServer
	}
	return FailureUnknown
}
