package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/export"
	"github.com/KaramelBytes/edaprompt-cli/internal/utils"
)

var (
	expDataset string
	expHTML    bool
	expOutDir  string
	expBucket  string
	expStdout  bool
)

var exportCmd = &cobra.Command{
	Use:       "export <questions|report|session>",
	Short:     "Write the latest questions, report or the whole session as Markdown",
	ValidArgs: []string{export.KindQuestions, export.KindReport, export.KindSession},
	Example: `  edaprompt export questions
  edaprompt export report --html --out-dir ./reports
  edaprompt export session --stdout
  edaprompt export report --bucket eda-exports`,
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

		doc, err := a.Export(ctx, sess, strings.ToLower(args[0]), expDataset)
		if err != nil {
			return err
		}
		name, body, contentType := doc.Name, doc.Markdown, "text/markdown; charset=utf-8"
		if expHTML {
			html, err := doc.HTML()
			if err != nil {
				return fmt.Errorf("render html: %w", err)
			}
			name, body, contentType = export.WithExt(doc.Name, ".html"), html, "text/html; charset=utf-8"
		}

		out := cmd.OutOrStdout()
		if expStdout {
			fmt.Fprint(out, body)
			return nil
		}
		bucket := expBucket
		if bucket == "" && !cmd.Flags().Changed("out-dir") && cfg != nil {
			bucket = cfg.ExportBucket
		}
		if bucket != "" {
			uri, err := a.Publish(ctx, bucket, sess, name, []byte(body), contentType)
			if err != nil {
				return err
			}
			okf(out, "Exported to %s", uri)
			return nil
		}

		dir := expOutDir
		if dir == "" && cfg != nil {
			dir = cfg.ExportDir
		}
		if dir == "" {
			dir = "."
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := utils.SafeWriteFile(path, []byte(body)); err != nil {
			return err
		}
		okf(out, "Exported to %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	f := exportCmd.Flags()
	f.StringVar(&expDataset, "dataset", "", "limit to entries for this dataset (default: latest entry of any dataset)")
	f.BoolVar(&expHTML, "html", false, "render HTML instead of Markdown")
	f.StringVar(&expOutDir, "out-dir", "", "directory to write into (default: export_dir from config)")
	f.StringVar(&expBucket, "bucket", "", "upload to this object storage bucket instead of a local file")
	f.BoolVar(&expStdout, "stdout", false, "print the document instead of writing a file")
}
