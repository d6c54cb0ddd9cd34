package cmd

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
	"github.com/KaramelBytes/edaprompt-cli/internal/utils"
)

// generationFlags are shared by the commands that call the completion service.
type generationFlags struct {
	DryRun      bool
	PrintPrompt bool
	BudgetLimit float64
	JSON        bool
	Quiet       bool
}

func (g *generationFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&g.DryRun, "dry-run", false, "compose the prompt and show token/cost estimates without calling the API")
	f.BoolVar(&g.PrintPrompt, "print-prompt", false, "print the prompt being sent")
	f.Float64Var(&g.BudgetLimit, "budget-limit", 0, "fail if the estimated max cost (USD) exceeds this budget")
	f.BoolVar(&g.JSON, "json", false, "emit the result as JSON")
	f.BoolVar(&g.Quiet, "quiet", false, "suppress non-essential output")
}

// effective applies implied settings: JSON output is always quiet.
func (g generationFlags) effective() generationFlags {
	if g.JSON {
		g.Quiet = true
	}
	return g
}

type estimate struct {
	Tokens    map[string]int
	Total     int
	MaxTokens int
	CostUSD   float64
	Priced    bool
}

// estimateRequest counts prompt tokens per message and prices the worst case.
func estimateRequest(model string, req prompt.Request) estimate {
	bd := utils.TokenBreakdown(map[string]string{"system": req.System, "user": req.User})
	e := estimate{Tokens: bd, Total: bd["system"] + bd["user"], MaxTokens: req.MaxTokens}
	e.CostUSD, e.Priced = ai.EstimateCostUSD(model, e.Total, req.MaxTokens)
	return e
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// preflight prints estimates and handles --dry-run. It returns true when the
// caller should stop without calling the API.
func preflight(w io.Writer, model string, req prompt.Request, g generationFlags) (bool, error) {
	est := estimateRequest(model, req)
	if !g.Quiet {
		fmt.Fprintf(w, "Tokens: prompt≈%d (system≈%d, user≈%d), max output %d\n",
			est.Total, est.Tokens["system"], est.Tokens["user"], est.MaxTokens)
		if mi, ok := ai.LookupModel(model); ok {
			if est.Total+est.MaxTokens > mi.ContextTokens {
				warnf(w, "prompt + output (%d) exceeds %s context window (~%d tokens)", est.Total+est.MaxTokens, mi.Name, mi.ContextTokens)
			}
			if est.Priced {
				fmt.Fprintf(w, "Estimated max cost: ~$%.4f (in %.4f/out %.4f per 1K tokens)\n", est.CostUSD, mi.InputPerK, mi.OutputPerK)
			}
		}
	}
	if err := enforceBudget(est.CostUSD, g.BudgetLimit); err != nil {
		return true, err
	}
	if g.DryRun {
		sum := sha1.Sum([]byte(req.System + "\n" + req.User))
		fmt.Fprintln(w, "\n--dry-run: no API call will be made. Prompt preview below --")
		fmt.Fprintf(w, "Request ID (dry-run): sim_%x\n", sum[:6])
		fmt.Fprintf(w, "[system] %s\n[user]\n%s", req.System, req.User)
		return true, nil
	}
	if g.PrintPrompt && !g.Quiet {
		fmt.Fprintln(w, "\n--print-prompt: sending the following prompt --")
		fmt.Fprintln(w, req.User)
	}
	return false, nil
}

// attachRuntime builds the completion runtime once preflight has passed, so
// dry runs never need a credential.
func attachRuntime(ctx context.Context, a *app.App) error {
	rt, provider, model, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	a.Runtime, a.Model = rt, model
	log.Debugf("runtime provider=%s model=%s", provider, model)
	return nil
}

// streamExplain writes deltas as they arrive. It returns false when the
// runtime cannot stream.
func streamExplain(ctx context.Context, w io.Writer, rt ai.Runtime, req ai.GenerateRequest) (bool, error) {
	sr, ok := rt.(ai.StreamRuntime)
	if !ok {
		warnf(w, "streaming not supported for this provider; falling back to non-streaming")
		return false, nil
	}
	if err := sr.GenerateStream(ctx, req, func(delta string) { fmt.Fprint(w, delta) }); err != nil {
		return true, &ai.CompletionError{Kind: ai.Classify(err), Err: err}
	}
	fmt.Fprintln(w)
	return true, nil
}

// writeResult prints generated text, or a JSON object with fields and text.
func writeResult(w io.Writer, g generationFlags, title, text string, fields map[string]any) error {
	if g.JSON {
		out := map[string]any{"text": text}
		for k, v := range fields {
			out[k] = v
		}
		b, err := utils.PrettyJSON(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	if !g.Quiet && title != "" {
		fmt.Fprintf(w, "\n=== %s ===\n", title)
	}
	fmt.Fprintln(w, text)
	return nil
}
