package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wagnerlima/contact-graph/internal/config"
	"github.com/wagnerlima/contact-graph/internal/logging"
	"github.com/wagnerlima/contact-graph/internal/server"
	"github.com/wagnerlima/contact-graph/internal/session"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

const appName = "contact-graph"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var gf globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Contact-tracing graph query server",
		Long: `contact-graph stores persons, places and visits per dataset and answers
contact-tracing questions over them: possible spreaders, people to inform,
healthy companions and more. It serves the queries as MCP tools over stdio
or HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&gf.dataDir, "data-dir", "", "Directory for SQLite databases (overrides config)")
	cmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(serveCmd(&gf))
	cmd.AddCommand(importCmd(&gf))
	cmd.AddCommand(importNeo4jCmd(&gf))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, server.Version)
		},
	})

	return cmd
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(gf *globalFlags, overrides ...func(*config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, nil, err
	}
	if gf.dataDir != "" {
		cfg.DataDir = gf.dataDir
	}
	if gf.logLevel != "" {
		cfg.Log.Level = gf.logLevel
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd(gf *globalFlags) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(gf, func(c *config.Config) {
				if transport != "" {
					c.Server.Transport = transport
				}
				if addr != "" {
					c.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport mode: stdio or http (overrides config)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, http transport only (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cat, err := storage.OpenCatalog(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	sess := session.New(logger, cfg.Query.MinOverlap)
	defer sess.Close()
	srv := server.New(cat, sess)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cfg.Server.Transport {
	case "stdio":
		logger.Info("contact graph server starting", zap.String("transport", "stdio"), zap.String("data_dir", cfg.DataDir))
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	default:
		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      server.NewHTTPHandler(srv, cfg.Server.BearerToken, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("contact graph server listening",
				zap.String("transport", "http"),
				zap.String("addr", cfg.Server.Addr),
				zap.Bool("auth", cfg.Server.BearerToken != ""),
			)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			return httpServer.Shutdown(shutdownCtx)
		}
	}
}
