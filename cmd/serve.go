package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaprompt-cli/internal/server"
)

var (
	serveAddr       string
	serveGenTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session and generation API over HTTP",
	Example: `  edaprompt serve
  edaprompt serve --addr 0.0.0.0:9090 --provider ollama`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(log.WithContext(parent), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cleanup, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		addr := serveAddr
		if addr == "" && cfg != nil {
			addr = cfg.ServeAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}
		srv := server.New(a, log)
		switch {
		case serveGenTimeout > 0:
			srv.CompletionTimeout = time.Duration(serveGenTimeout) * time.Second
		case cfg != nil && cfg.TimeoutSec > 0:
			srv.CompletionTimeout = time.Duration(cfg.TimeoutSec) * time.Second
		}
		okf(cmd.OutOrStdout(), "Serving on http://%s (model %s)", addr, a.Model)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: serve_addr from config)")
	serveCmd.Flags().IntVar(&serveGenTimeout, "completion-timeout", 0, "per-request limit for generation endpoints in seconds")
}
