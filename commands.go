package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stevemurr/simple-data-server/collection"
	"github.com/stevemurr/simple-data-server/config"
	"github.com/stevemurr/simple-data-server/handler"
	"github.com/stevemurr/simple-data-server/logger"
	"github.com/stevemurr/simple-data-server/metrics"
	"github.com/stevemurr/simple-data-server/server"
	"github.com/stevemurr/simple-data-server/service"
	"github.com/stevemurr/simple-data-server/store"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func newExportCommand(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection as one JSON object",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(*configPath, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newImportCommand(configPath *string) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace every collection from an exported JSON object",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(*configPath, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "exported JSON file")
	cmd.MarkFlagRequired("in")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// app is the storage side shared by every command.
type app struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	store   store.Store
	service *service.Service
	unlock  func() error
}

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	l, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: l, metrics: metrics.New()}

	if cfg.Storage.Lock && cfg.Storage.Backend != "memory" {
		unlock, err := store.LockDir(cfg.Storage.DataDir)
		if err != nil {
			l.Close()
			return nil, err
		}
		a.unlock = unlock
	}

	s, err := store.New(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create store (backend=%s): %w", cfg.Storage.Backend, err)
	}
	a.store = s
	a.service = service.New(s, l, a.metrics)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Errorw("Failed to close store", "error", err)
		}
	}
	if a.unlock != nil {
		if err := a.unlock(); err != nil {
			a.logger.Errorw("Failed to release data directory lock", "error", err)
		}
	}
	a.logger.Close()
}

func runServer(configPath string) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	h := handler.New(a.service, a.logger, a.metrics, handler.Options{
		StaticDir:     cfg.Server.StaticDir,
		ExposeMetrics: cfg.Metrics.Enabled,
	})

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.Security.AllowedOrigins(),
		RateLimit:      cfg.Security.RateLimitRequests,
		RateBurst:      cfg.Security.RateLimitBurst,
	}, h, a.logger, a.metrics)

	a.logger.Infow("Simple Data Server starting",
		"address", cfg.Server.Address(),
		"store", cfg.Storage.Backend,
		"data_dir", cfg.Storage.DataDir,
		"version", version,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.Infow("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runExport(configPath, out string, stdout io.Writer) error {
	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := a.service.Load(collection.All)
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}
	b, err := store.Encode(doc)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if out == "" {
		_, err = stdout.Write(b)
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	a.logger.Infow("Collections exported", "file", out)
	return nil
}

func runImport(configPath, in string, stdout io.Writer) error {
	b, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(b, &entries); err != nil || entries == nil {
		return fmt.Errorf("%s is not a JSON object of collections", in)
	}

	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	written, err := a.service.Save(collection.SaveRequest{Type: collection.All, Data: b})
	if err != nil {
		return fmt.Errorf("import stopped after %v: %w", written, err)
	}
	fmt.Fprintf(stdout, "imported %d collections from %s\n", len(written), in)
	return nil
}
