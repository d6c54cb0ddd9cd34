package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/logger"
)

type errorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Failure string `json:"failure,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindDuplicateName:
		return http.StatusConflict
	case errs.ErrKindParseFailure:
		return http.StatusUnprocessableEntity
	case errs.ErrKindCompletionService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	body := errorBody{Error: err.Error(), Kind: kind.String()}
	var ce *ai.CompletionError
	if errors.As(err, &ce) {
		body.Failure = string(ce.Kind)
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]interface{}{"path": r.URL.Path})
	}
	if kind == errs.ErrKindMissingCredential {
		body.Error = "server has no completion API key configured"
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid JSON body", err)
	}
	return nil
}
