package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/app"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
)

var (
	fuDataset  string
	fuQuestion string
	fuPick     int
	fuFlags    generationFlags
)

var followupsCmd = &cobra.Command{
	Use:     "followups",
	Aliases: []string{"followup"},
	Short:   "Ask for follow-up questions that dig into one question",
	Example: `  edaprompt followups --pick 3
  edaprompt followups --question "Which plans churn fastest in the first 90 days?"`,
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

		opt := app.FollowUpOptions{Dataset: fuDataset, Question: fuQuestion, Pick: fuPick}
		q, err := a.ResolveQuestion(ctx, sess, opt)
		if err != nil {
			return err
		}
		req, _, err := a.Prompt(ctx, sess, prompt.TaskFollowUps, app.GenerateOptions{Dataset: fuDataset}, prompt.Input{Question: q})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		g := fuFlags.effective()
		if !g.Quiet {
			dim.Fprintf(out, "Question: %s\n", q)
		}
		if stop, err := preflight(out, selectModel(cfg, providerName(cfg)), req, g); stop || err != nil {
			return err
		}
		if err := attachRuntime(ctx, a); err != nil {
			return err
		}
		// The picked question is passed as literal text so it resolves once.
		question, entry, err := a.GenerateFollowUps(ctx, sess, app.FollowUpOptions{Dataset: fuDataset, Question: q})
		if err != nil {
			return err
		}
		return writeResult(out, g, "Follow-up Questions", entry.Text, map[string]any{
			"session":  sess,
			"question": question,
			"model":    entry.Model,
			"id":       entry.ID,
		})
	},
}

func init() {
	rootCmd.AddCommand(followupsCmd)
	f := followupsCmd.Flags()
	f.StringVar(&fuDataset, "dataset", "", "dataset name within the session (default: latest upload)")
	f.StringVarP(&fuQuestion, "question", "q", "", "the question to follow up on, verbatim")
	f.IntVar(&fuPick, "pick", 0, "1-based index into the latest generated questions")
	fuFlags.register(followupsCmd)
}
