package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edaprompt-cli/internal/config"
)

var (
	sessNoSelect bool
	sessJSON     bool
	sessYes      bool
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Create, inspect, select or delete analysis sessions",
	Example: `  edaprompt session create churn-q3
  edaprompt session list
  edaprompt session show
  edaprompt session select churn-q3
  edaprompt session delete churn-q3 --yes`,
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new session and select it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		a, cleanup, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()
		s, err := a.CreateSession(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		okf(out, "Session created: %s", s.Name)
		if !sessNoSelect {
			if err := selectSession(s.Name); err != nil {
				return err
			}
			okf(out, "Selected session: %s", s.Name)
		}
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		a, cleanup, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()
		list, err := a.Store.List(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if sessJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No sessions. Create one with 'edaprompt session create <name>'.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, " \tNAME\tDATASETS\tQUESTIONS\tFOLLOW-UPS\tREPORTS\tUPDATED")
		for _, s := range list {
			mark := " "
			if cfg != nil && cfg.CurrentSession == s.Name {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n", mark, s.Name, s.Datasets, s.Questions, s.FollowUps, s.Reports,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a session's datasets and generated content",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			n, err := currentSession()
			if err != nil {
				return err
			}
			name = n
		}
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		a, cleanup, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()
		s, err := a.Store.Get(ctx, name)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if sessJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		fmt.Fprintf(out, "Session: %s (created %s)\n", s.Name, s.CreatedAt.Local().Format("2006-01-02 15:04"))
		for _, dn := range s.DatasetNames() {
			ds := s.Datasets[dn]
			fmt.Fprintf(out, "\nDataset %s: %d rows × %d columns\n", ds.Filename, ds.Rows, ds.Columns)
			for _, d := range ds.Digests {
				fmt.Fprintln(out, d.Line())
			}
		}
		for i, q := range s.Questions {
			fmt.Fprintf(out, "\n--- Questions %d (%s, %s) ---\n%s\n", i+1, q.Dataset, q.CreatedAt.Local().Format("2006-01-02 15:04"), q.Questions)
		}
		for q, list := range s.FollowUps {
			fmt.Fprintf(out, "\n--- Follow-ups for %q (%d) ---\n%s\n", q, len(list), list[len(list)-1].Text)
		}
		if n := len(s.Reports); n > 0 {
			fmt.Fprintf(out, "\n%d report(s); export with 'edaprompt export report'\n", n)
		}
		return nil
	},
}

var sessionSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Select the session used by later commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		a, cleanup, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()
		if _, err := a.Store.Get(ctx, args[0]); err != nil {
			return err
		}
		if err := selectSession(args[0]); err != nil {
			return err
		}
		okf(cmd.OutOrStdout(), "Selected session: %s", args[0])
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a session and everything generated in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !sessYes {
			fmt.Fprintf(cmd.OutOrStdout(), "Delete session %q? [y/N]: ", name)
			if ans := strings.ToLower(readLine(cmd.InOrStdin())); ans != "y" && ans != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
		}
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		a, cleanup, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := a.Store.Delete(ctx, name); err != nil {
			return err
		}
		if cfg != nil && cfg.CurrentSession == name {
			if err := selectSession(""); err != nil {
				return err
			}
		}
		okf(cmd.OutOrStdout(), "Session deleted: %s", name)
		return nil
	},
}

// selectSession persists current_session in the config file.
func selectSession(name string) error {
	if err := cfgpkg.Update(cfgFile, func(g *cfgpkg.Global) error {
		g.CurrentSession = name
		return nil
	}); err != nil {
		return err
	}
	if cfg != nil {
		cfg.CurrentSession = name
	}
	return nil
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd, sessionListCmd, sessionShowCmd, sessionSelectCmd, sessionDeleteCmd)

	sessionCreateCmd.Flags().BoolVar(&sessNoSelect, "no-select", false, "do not select the new session")
	sessionListCmd.Flags().BoolVar(&sessJSON, "json", false, "emit JSON")
	sessionShowCmd.Flags().BoolVar(&sessJSON, "json", false, "emit JSON")
	sessionDeleteCmd.Flags().BoolVarP(&sessYes, "yes", "y", false, "skip confirmation")
}
