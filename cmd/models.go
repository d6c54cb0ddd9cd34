package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaprompt-cli/internal/config"
)

var (
	modelsJSON bool
	syncPath   string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog used for defaults and cost estimates",
	Example: `  edaprompt models show
  edaprompt models show --provider ollama --json
  edaprompt models sync --file ./models.json`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := ""
		if rootCmd.PersistentFlags().Changed("provider") {
			provider = providerName(nil)
		}
		list := ai.ModelsFor(provider)
		out := cmd.OutOrStdout()
		if modelsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tIN/1K\tOUT/1K")
		for _, m := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.5f\t%.5f\n", m.Name, m.Provider, m.ContextTokens, m.InputPerK, m.OutputPerK)
		}
		return tw.Flush()
	},
}

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Validate a JSON catalog file and merge it on every run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		abs, err := filepath.Abs(syncPath)
		if err != nil {
			abs = syncPath
		}
		if err := cfgpkg.Update(cfgFile, func(g *cfgpkg.Global) error {
			g.ModelsCatalogPath = abs
			return nil
		}); err != nil {
			return err
		}
		ai.MergeCatalog(m)
		okf(cmd.OutOrStdout(), "Catalog with %d models registered from %s", len(m), abs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)

	modelsShowCmd.Flags().BoolVar(&modelsJSON, "json", false, "emit JSON")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
}
