package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/plugboard/internal/discovery"
	"github.com/zjrosen/plugboard/internal/extension"
	"github.com/zjrosen/plugboard/internal/flags"
	"github.com/zjrosen/plugboard/internal/host"
	"github.com/zjrosen/plugboard/internal/infrastructure/sqlite"
	"github.com/zjrosen/plugboard/internal/log"
	"github.com/zjrosen/plugboard/internal/tracing"
	"github.com/zjrosen/plugboard/internal/watcher"
)

// factories is the process-wide factory registry. Programs embedding
// plugboard register their compiled-in extensions here before Execute;
// a discovered package without a registered factory is skipped.
var factories = discovery.NewFactoryRegistry()

// Factories exposes the registry daemon discovery draws factories from.
func Factories() *discovery.FactoryRegistry {
	return factories
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the extension host daemon",
	Long: `Run the extension host as a long-lived daemon. The daemon discovers
extension packages, re-enables whatever the registry records as enabled,
watches the packages directory for changes, and serves extension routes,
static assets and a small management API over HTTP.

Example:
  plugboard daemon                   # Listen on the configured address
  plugboard daemon --addr :8080      # Override the listen address`,
	RunE: runDaemon,
}

var daemonAddr string

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonAddr, "addr", "", "Address to listen on (overrides config)")
}

func runDaemon(_ *cobra.Command, _ []string) error {
	cleanup, err := initLogging("plugboard daemon")
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tracer, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening registry database: %w", err)
	}

	h := host.New(cfg.StaticRoot)
	source := discovery.NewDirSource(cfg.ExtensionsDir, factories, flags.New(cfg.Flags))

	manager, err := extension.NewManager(extension.ManagerOptions{
		Key:        cfg.ManagerKey,
		StaticRoot: cfg.StaticRoot,
		Source:     source,
		Repository: sqlite.NewRegistrationRepository(db),
		Routes:     h,
		Components: h,
		Cache:      h,
	})
	if err != nil {
		return fmt.Errorf("creating extension manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Discover(ctx); err != nil {
		return fmt.Errorf("discovering extensions: %w", err)
	}
	log.Info(log.CatExt, "initial discovery complete",
		"known", len(manager.Descriptors()), "enabled", len(manager.Instances()))

	// Re-run discovery whenever the packages directory changes.
	var w *watcher.Watcher
	if cfg.AutoDiscover {
		w, err = watcher.New(watcher.DefaultConfig(cfg.ExtensionsDir))
		if err != nil {
			log.ErrorErr(log.CatWatcher, "package watcher unavailable", err)
		} else {
			changes, startErr := w.Start()
			if startErr != nil {
				log.ErrorErr(log.CatWatcher, "package watcher failed to start", startErr)
			} else {
				log.SafeGo("auto-discover", func() {
					for range changes {
						if derr := manager.Discover(ctx); derr != nil {
							log.ErrorErr(log.CatDiscover, "discovery pass failed", derr)
						}
					}
				})
			}
		}
	}

	addr := daemonAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", newAPIHandler(manager))
	mux.Handle("/", h)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Printf("Plugboard daemon listening on %s\n", addr)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatHost, "error stopping HTTP server", err)
	}
	if w != nil {
		if err := w.Stop(); err != nil {
			log.ErrorErr(log.CatWatcher, "error stopping package watcher", err)
		}
	}
	if err := db.Close(); err != nil {
		log.ErrorErr(log.CatDB, "error closing registry database", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatTrace, "error shutting down tracing", err)
	}

	fmt.Println("Daemon stopped")
	return nil
}
