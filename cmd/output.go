package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

var (
	okMark   = color.New(color.FgGreen, color.Bold)
	warnMark = color.New(color.FgYellow, color.Bold)
	errMark  = color.New(color.FgRed, color.Bold)
	dim      = color.New(color.Faint)
)

func okf(w io.Writer, format string, args ...any) {
	okMark.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func warnf(w io.Writer, format string, args ...any) {
	warnMark.Fprint(w, "⚠ Warning: ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printError(w io.Writer, err error) {
	errMark.Fprint(w, "✗ Error: ")
	fmt.Fprintln(w, err)
	if h := hint(err); h != "" {
		dim.Fprintln(w, "  "+h)
	}
}

// hint suggests a next step for common failures.
func hint(err error) string {
	var ce *ai.CompletionError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case ai.FailureAuth:
			return "check api_key (OPENROUTER_API_KEY or 'edaprompt config set api_key ...')"
		case ai.FailureRateLimit:
			var rl *ai.RateLimitError
			if errors.As(err, &rl) && rl.RetryAfter > 0 {
				return fmt.Sprintf("rate limited; retry in ~%ds or raise --retry-max", int(rl.RetryAfter.Seconds()))
			}
			return "rate limited; retry later or raise --retry-max"
		case ai.FailureModelNotFound:
			return "verify the model name with 'edaprompt models show' or pass --model"
		case ai.FailureQuota:
			return "quota or billing issue; check your provider account"
		case ai.FailureUnreachable:
			var un *ai.UnreachableError
			if errors.As(err, &un) && un.Host != "" {
				return fmt.Sprintf("%s not reachable; check the host or that the service is running", un.Host)
			}
			return "endpoint unreachable; check your network and provider settings"
		case ai.FailureServer:
			return "provider appears unavailable; retry later"
		case ai.FailureEmpty:
			return "the model returned no text; try again or raise the output limit"
		}
	}
	switch {
	case errs.IsMissingCredential(err):
		return "set OPENROUTER_API_KEY (or GEMINI_API_KEY for --provider gemini), or run 'edaprompt config set api_key <key>'"
	case errs.IsDuplicateName(err):
		return "choose another name or select the existing session with 'edaprompt session select'"
	case errs.IsParseFailure(err):
		return "only comma-delimited CSV files with a header row are supported"
	case errs.IsStorage(err):
		return "check store_backend and store_dsn (or the minio_* keys for --bucket) with 'edaprompt config show'"
	case errs.IsCompletionService(err):
		return "the provider did not answer; rerun with --debug for details"
	}
	return ""
}
