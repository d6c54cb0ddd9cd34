package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/app"
)

var (
	upParseDates []string
	upPreview    int
	upMaxRows    int
	upName       string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv|s3://bucket/key>",
	Short: "Load a CSV dataset into the session and summarize its columns",
	Example: `  edaprompt upload ./data/churn.csv
  edaprompt upload ./orders.csv --parse-dates order_date,shipped_at --preview 10
  edaprompt upload s3://datasets/2024/churn.csv -s churn-q3`,
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

		maxRows := upMaxRows
		if !cmd.Flags().Changed("max-rows") && cfg != nil {
			maxRows = cfg.MaxRows
		}
		res, err := a.UploadDataset(ctx, sess, args[0], app.UploadOptions{
			ParseDates: upParseDates,
			MaxRows:    maxRows,
			Filename:   upName,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		okf(out, "Loaded %s into %s: %d rows x %d columns", res.Dataset.Filename, sess, res.Dataset.Rows, res.Dataset.Columns)
		if upPreview > 0 {
			fmt.Fprintf(out, "\nPreview:\n%s\n", res.Table.Head(upPreview))
		}
		fmt.Fprintln(out, "\nColumn summary:")
		for _, d := range res.Dataset.Digests {
			fmt.Fprintln(out, d.Line())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	f := uploadCmd.Flags()
	f.StringSliceVar(&upParseDates, "parse-dates", nil, "columns to parse as datetimes (comma-separated)")
	f.IntVar(&upPreview, "preview", 5, "rows to preview after loading (0 to skip)")
	f.IntVar(&upMaxRows, "max-rows", 0, "stop reading after this many data rows (0 = all)")
	f.StringVar(&upName, "name", "", "dataset name to store instead of the file name")
}
