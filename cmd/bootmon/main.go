// bootmon - embeddable monitoring agent with Spring Boot Admin compatible
// actuator endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bootmon/bootmon/pkg/actuator"
	"github.com/bootmon/bootmon/pkg/agent"
	"github.com/bootmon/bootmon/pkg/config"
	"github.com/bootmon/bootmon/pkg/logbuf"
	"github.com/bootmon/bootmon/pkg/logging"
	"github.com/bootmon/bootmon/pkg/loggers"
	"github.com/bootmon/bootmon/pkg/registration"
)

// Build-time variables set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		addr        string
		registryURL string
	)

	root := &cobra.Command{
		Use:     "bootmon",
		Short:   "Monitoring agent exposing actuator endpoints",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if registryURL != "" {
				cfg.Registration.RegistryURL = registryURL
			}
			return serve(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to bootmon.yaml")
	root.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	root.Flags().StringVar(&registryURL, "registry-url", "", "monitoring registry URL (overrides config)")
	return root
}

// serve wires logging, engine, adapter and registration, then runs until the
// context is cancelled by SIGINT or SIGTERM.
func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Operational logging, teed into the engine's log capture so the
	// logfile endpoint serves what the process logged.
	sink := logbuf.New()
	handler := logging.NewHandler(logging.Config{
		Level:   logging.ParseLevel(cfg.Log.Level),
		Format:  logging.ParseFormat(cfg.Log.Format),
		Capture: sink,
	})
	logReg := loggers.NewRegistry(handler, logging.ParseLevel(cfg.Log.Level))
	log := logReg.Named("bootmon")

	engine, err := agent.New(agent.Options{
		App: agent.AppDetails{
			Name:        cfg.App.Name,
			Description: cfg.App.Description,
			Version:     cfg.App.Version,
		},
		TraceCapacity: cfg.Trace.Capacity,
		DiskPath:      cfg.Health.DiskPath,
		DiskThreshold: cfg.Health.DiskThresholdBytes,
		Log:           log,
		Loggers:       logReg,
		LogSink:       sink,
	})
	if err != nil {
		return err
	}

	api, err := actuator.New(actuator.Options{
		Engine:   engine,
		BasePath: cfg.Server.BasePath,
		Log:      logReg.Named("bootmon.actuator"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           actuator.Trace(engine, api.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var client *registration.Client
	if cfg.Registration.RegistryURL != "" {
		publicURL := cfg.Server.PublicURL
		if publicURL == "" {
			publicURL = "http://localhost" + cfg.Server.Addr
		}
		client, err = registration.NewClient(registration.Config{
			RegistryURL:   cfg.Registration.RegistryURL,
			Name:          instanceName(cfg.App.Name),
			ServiceURL:    publicURL,
			ManagementURL: publicURL + cfg.Server.BasePath,
			HealthURL:     publicURL + cfg.Server.BasePath + "/health",
			Metadata:      cfg.Registration.Metadata,
			Interval:      cfg.Registration.Interval,
			Timeout:       cfg.Registration.Timeout,
		}, logReg.Named("bootmon.registration"), nil)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("actuator listening", "addr", cfg.Server.Addr, "basePath", cfg.Server.BasePath)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if client != nil {
		client.Start()
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if client != nil {
			client.Stop(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// instanceName derives a unique registry name from the application name.
func instanceName(appName string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return appName + "-" + suffix
}
