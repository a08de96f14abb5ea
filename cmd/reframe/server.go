package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/reframe/internal/api"
	"github.com/kalambet/reframe/internal/config"
	"github.com/kalambet/reframe/internal/gemini"
	"github.com/kalambet/reframe/internal/miniapp"
	"github.com/kalambet/reframe/internal/refine"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

// setupLogging installs the text logger at level. Logs go to stderr since
// stdout carries command output and the MCP protocol.
func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func newRefiner(cfg config.Config) *refine.Refiner {
	g := gemini.NewClientWithBaseURL(cfg.Gemini.Model, cfg.Gemini.BaseURL)
	slog.Debug("gemini client configured", "model", g.Model(), "base_url", cfg.Gemini.BaseURL)
	return refine.NewRefiner(g)
}

func manifestFor(cfg config.Config) miniapp.Manifest {
	return miniapp.BuildManifest(miniapp.ManifestConfig{
		RootURL:   cfg.MiniApp.RootURL,
		Header:    cfg.MiniApp.AccountHeader,
		Payload:   cfg.MiniApp.AccountPayload,
		Signature: cfg.MiniApp.AccountSignature,
	})
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "reframe version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Refuse to start twice on the same port.
	probe := newAPIClient(cfg)
	probe.httpClient.Timeout = 2 * time.Second
	if resp, err := probe.get(ctx, "/health"); err == nil {
		resp.Body.Close()
		printWarning("reframe is already running on %s", cfg.Addr())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}

	handler := api.NewHandler(api.Deps{
		Refiner:  newRefiner(cfg),
		Manifest: manifestFor(cfg),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("reframe listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lc, err := openLocal(cfg)
	if err != nil {
		return err
	}
	defer lc.Close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Refiner: newRefiner(cfg),
		Keys:    lc.keys,
		Stats:   lc.stats,
	})
	slog.Info("MCP server started (stdio transport)")

	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
