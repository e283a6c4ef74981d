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

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sentinela-gateway/internal/config"
	"sentinela-gateway/internal/httpserver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinela-gateway",
		Short: "Chatbot, complaint and news API for the Sentinela portal",
		Long: `Runs the Sentinela API as an AWS Lambda function behind API Gateway.

Use "serve" to run the same handler as a local HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLambda(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		port   string
		memory bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API over HTTP for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), port, memory)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (defaults to PORT or 8080)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep state in process instead of the configured store")
	return cmd
}

func loadConfig() (config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}

func runLambda(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = closeLog() }()

	h, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build handler", "error", err)
		return err
	}
	defer cleanup()

	lambda.Start(h.Handle)
	return nil
}

func runServer(ctx context.Context, port string, memory bool) error {
	if memory {
		_ = os.Setenv("KV_BACKEND", config.BackendMemory)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = closeLog() }()

	h, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build handler", "error", err)
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.NewRouter(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting dev server", "port", cfg.Port, "kvBackend", cfg.KVBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("dev server stopped")
	return nil
}
