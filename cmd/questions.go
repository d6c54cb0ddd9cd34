package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
)

var (
	qDataset   string
	qObjective string
	qFocus     []string
	qFlags     generationFlags
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Ask the model for exploratory questions about the dataset",
	Example: `  edaprompt questions
  edaprompt questions --objective "understand churn drivers" --focus tenure,plan
  edaprompt questions --dataset orders.csv --dry-run`,
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

		opt := app.GenerateOptions{Dataset: qDataset, Objective: qObjective, Focus: qFocus}
		req, _, err := a.Prompt(ctx, sess, prompt.TaskQuestions, opt, prompt.Input{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		g := qFlags.effective()
		if stop, err := preflight(out, selectModel(cfg, providerName(cfg)), req, g); stop || err != nil {
			return err
		}
		if err := attachRuntime(ctx, a); err != nil {
			return err
		}
		entry, err := a.GenerateQuestions(ctx, sess, opt)
		if err != nil {
			return err
		}
		return writeResult(out, g, "EDA Questions", entry.Questions, map[string]any{
			"session": sess,
			"dataset": entry.Dataset,
			"model":   entry.Model,
			"id":      entry.ID,
		})
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
	f := questionsCmd.Flags()
	f.StringVar(&qDataset, "dataset", "", "dataset name within the session (default: latest upload)")
	f.StringVar(&qObjective, "objective", "", "what you want to learn from the data")
	f.StringSliceVar(&qFocus, "focus", nil, "columns to emphasize (comma-separated)")
	qFlags.register(questionsCmd)
}
