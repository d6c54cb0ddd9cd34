package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
)

var (
	exDataset string
	exStream  bool
	exFlags   generationFlags
)

var explainCmd = &cobra.Command{
	Use:   "explain <column>",
	Short: "Explain what a column likely means and how to read it",
	Example: `  edaprompt explain tenure_months
  edaprompt explain plan --dataset churn.csv --stream`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		a, cleanup, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		column := args[0]
		req, _, err := a.Prompt(ctx, sess, prompt.TaskExplain, app.GenerateOptions{Dataset: exDataset}, prompt.Input{Column: column})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		g := exFlags.effective()
		if stop, err := preflight(out, selectModel(cfg, providerName(cfg)), req, g); stop || err != nil {
			return err
		}
		if err := attachRuntime(ctx, a); err != nil {
			return err
		}
		if exStream && !g.JSON {
			if !g.Quiet {
				okf(out, "Explaining %s (streaming)", column)
			}
			handled, err := streamExplain(ctx, out, a.Runtime, ai.ChatRequest(a.Model, req))
			if handled || err != nil {
				return err
			}
		}
		c, err := a.ExplainColumn(ctx, sess, exDataset, column)
		if err != nil {
			return err
		}
		return writeResult(out, g, "Column: "+column, c.Text, map[string]any{
			"session": sess,
			"column":  column,
			"model":   c.Model,
		})
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
	f := explainCmd.Flags()
	f.StringVar(&exDataset, "dataset", "", "dataset name within the session (default: latest upload)")
	f.BoolVar(&exStream, "stream", false, "print the explanation as it is generated")
	exFlags.register(explainCmd)
}
