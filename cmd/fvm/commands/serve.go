/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serve.go
Description: serve command. Wires the executor, parser, history, metrics and device
controller into the HTTP API and runs it until interrupted.
*/

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kleascm/fvm/pkg/api"
	"github.com/kleascm/fvm/pkg/config"
	"github.com/kleascm/fvm/pkg/execution"
	"github.com/kleascm/fvm/pkg/history"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/kleascm/fvm/pkg/mobile"
	"github.com/kleascm/fvm/pkg/monitoring"
	"github.com/kleascm/fvm/pkg/mvt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RunServe starts the HTTP API
func RunServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *monitoring.Metrics
	var parserOpts []logparse.ParserOption
	serviceOpts := []mvt.Option{}
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics()
		parserOpts = append(parserOpts, logparse.WithObserver(metrics))
		serviceOpts = append(serviceOpts, mvt.WithCommandObserver(metrics))
	}

	parser, _, err := BuildParser(cfg, log, parserOpts...)
	if err != nil {
		return err
	}

	store, err := openHistory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	keys := config.NewEnvFile(cfg.EnvFile)
	runner := execution.NewProcessExecutor(cfg.MVT.Timeout, log)

	serviceOpts = append(serviceOpts, mvt.WithHistory(store), mvt.WithSecrets(keys))
	scanner := mvt.NewService(mvt.Settings{
		Binary:        cfg.MVT.Binary,
		ADBBinary:     cfg.MVT.ADBBinary,
		OutputFolder:  cfg.MVT.OutputFolder,
		IndicatorsDir: cfg.MVT.IndicatorsDir,
		Timeout:       cfg.MVT.Timeout,
	}, runner, parser, log, serviceOpts...)

	server := api.NewServer(api.Deps{
		Scanner:     scanner,
		Devices:     mobile.NewAndroidDeviceController(runner, cfg.MVT.ADBBinary, log),
		Keys:        keys,
		History:     store,
		Metrics:     metrics,
		MetricsPath: cfg.Metrics.Path,
		MaxBody:     cfg.Server.MaxBodyBytes,
	}, log)

	logger.Info("Starting FVM", map[string]interface{}{
		"addr":     cfg.Server.Addr,
		"mvt":      cfg.MVT.Binary,
		"adb":      cfg.MVT.ADBBinary,
		"log_file": logger.LogFile(),
		"version":  Version,
	})

	return server.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
}

func openHistory(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (history.Store, error) {
	if cfg.History.PostgresDSN == "" {
		log.WithField("capacity", cfg.History.Capacity).Info("Using in-memory scan history")
		return history.NewMemoryStore(cfg.History.Capacity), nil
	}
	store, err := history.OpenPostgres(ctx, cfg.History.PostgresDSN)
	if err != nil {
		return nil, err
	}
	log.Info("Using PostgreSQL scan history")
	return store, nil
}
