package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
)

var (
	rpDataset   string
	rpObjective string
	rpFocus     []string
	rpFlags     generationFlags
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a narrative Markdown EDA report for the dataset",
	Example: `  edaprompt report --objective "quarterly churn review"
  edaprompt report --budget-limit 0.02`,
	Args: cobra.NoArgs,
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

		opt := app.GenerateOptions{Dataset: rpDataset, Objective: rpObjective, Focus: rpFocus}
		req, _, err := a.Prompt(ctx, sess, prompt.TaskReport, opt, prompt.Input{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		g := rpFlags.effective()
		if stop, err := preflight(out, selectModel(cfg, providerName(cfg)), req, g); stop || err != nil {
			return err
		}
		if err := attachRuntime(ctx, a); err != nil {
			return err
		}
		entry, err := a.GenerateReport(ctx, sess, opt)
		if err != nil {
			return err
		}
		return writeResult(out, g, "EDA Report", entry.Text, map[string]any{
			"session": sess,
			"dataset": entry.Dataset,
			"model":   entry.Model,
			"id":      entry.ID,
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	f := reportCmd.Flags()
	f.StringVar(&rpDataset, "dataset", "", "dataset name within the session (default: latest upload)")
	f.StringVar(&rpObjective, "objective", "", "what the report should focus on")
	f.StringSliceVar(&rpFocus, "focus", nil, "columns to emphasize (comma-separated)")
	rpFlags.register(reportCmd)
}
