// Package cli wires the proceres command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"proceres/internal/armarker"
	"proceres/internal/blob"
	"proceres/internal/config"
	"proceres/internal/core"
	"proceres/internal/platform/logger"
	"proceres/pkg/domain"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// app carries the dependencies built once per invocation.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   domain.PersistentStore
	blobs   blob.Store
	markers *armarker.Generator
	svc     *core.Service
	metrics prometheus.Registerer
}

func (a *app) close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("close store", "error", err)
		}
	}
	a.log.Sync()
}

// opener builds the application dependencies. Tests replace it.
type opener func(ctx context.Context) (*app, error)

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return buildApp(ctx, cfg, log, prometheus.DefaultRegisterer)
}

func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*app, error) {
	store, err := core.OpenPersistentStore(core.StorageOptions{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.BlobOptions())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	markers := armarker.New(blobs, armarker.WithLogger(log))
	svc := core.NewService(store,
		core.WithLogger(log),
		core.WithMarkerGenerator(markers),
		core.WithAssetsBaseURL(cfg.AssetsBaseURL),
	)
	return &app{cfg: cfg, log: log, store: store, blobs: blobs, markers: markers, svc: svc, metrics: reg}, nil
}

// NewRootCommand returns the command tree using the environment configuration.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openApp)
}

func newRootCommand(open opener) *cobra.Command {
	var a *app
	var output string
	root := &cobra.Command{
		Use:           "proceres",
		Short:         "Historical-figure content graph and dataset loader",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["standalone"] == "true" {
				return nil
			}
			var err error
			a, err = open(cmd.Context())
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format (text, json)")

	deps := func() *app { return a }
	root.AddCommand(
		newSeedCommand(deps, &output),
		newSearchCommand(deps, &output),
		newMarkersCommand(deps, &output),
		newARCommand(deps),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
