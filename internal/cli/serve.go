package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalens/internal/api"
	"github.com/ppiankov/legalens/internal/mail"
	"github.com/ppiankov/legalens/internal/mcpserver"
	"github.com/ppiankov/legalens/internal/pipeline"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve starts a JSON API:

  GET  /healthz             liveness check
  POST /api/v1/analyze      analyze JSON {"text": ...} or a multipart "file" upload
  POST /api/v1/report.pdf   same input, returns the PDF report
  GET  /api/v1/updates      current regulatory updates

Both POST endpoints accept an optional "email" to deliver the PDF report.

Example:
  legalens serve
  legalens serve --addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve analysis tools over MCP (stdio)",
	Long: `Mcp exposes the legalens_analyze and legalens_risks tools to MCP clients
over stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	addAnalysisFlags(serveCmd)
	addAnalysisFlags(mcpCmd)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	dispatcher := mail.NewDispatcher(cfg.Mail, logger)
	if !dispatcher.Configured() {
		logger.Info("e-mail delivery disabled", "reason", "mail.host or sender not set")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	fmt.Fprintf(os.Stderr, "legalens API listening on %s\n", cfg.Server.Addr)
	server := api.New(p, cfg.Server,
		api.WithMailer(dispatcher),
		api.WithLogger(logger),
		api.WithVersion(Version),
	)
	return server.ListenAndServe(ctx)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	logger.Info("mcp server starting", "transport", "stdio")
	return mcpserver.New(p, logger, Version).RunStdio(ctx)
}
