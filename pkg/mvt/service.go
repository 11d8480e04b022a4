/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: service.go
Description: mvt-android service. Builds the command line for each subcommand, runs it
through the command runner, turns the captured output into a ParseResult and records
every run in the scan history.
*/

package mvt

import (
	"context"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/catalog"
	"github.com/kleascm/fvm/pkg/config"
	"github.com/kleascm/fvm/pkg/execution"
	"github.com/kleascm/fvm/pkg/history"
	"github.com/kleascm/fvm/pkg/logging"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/sirupsen/logrus"
)

// VirusTotalKey is the environment variable mvt-android reads its VirusTotal key from
const VirusTotalKey = config.VirusTotalKey

// Settings holds the static parts of every invocation
type Settings struct {
	Binary        string
	ADBBinary     string
	OutputFolder  string
	IndicatorsDir string
	Timeout       time.Duration
}

// SecretSource provides values such as the VirusTotal key
type SecretSource interface {
	Get(key string) (string, error)
}

// CommandObserver receives the outcome of every external run
type CommandObserver interface {
	ObserveCommand(subcommand string, duration time.Duration, err error)
}

// Scan is a finished, recorded run
type Scan struct {
	ID     string
	Result *logparse.ParseResult
}

// Service runs mvt-android subcommands
type Service struct {
	settings Settings
	runner   execution.CommandRunner
	parser   *logparse.Parser
	store    history.Store
	secrets  SecretSource
	observer CommandObserver
	logger   logrus.FieldLogger
}

// Option configures a Service
type Option func(*Service)

// WithHistory records runs in store
func WithHistory(store history.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithSecrets sets where the VirusTotal key is read from
func WithSecrets(src SecretSource) Option {
	return func(s *Service) { s.secrets = src }
}

// WithCommandObserver attaches an observer, typically the metrics collector
func WithCommandObserver(o CommandObserver) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a service
func NewService(settings Settings, runner execution.CommandRunner, parser *logparse.Parser, logger logrus.FieldLogger, opts ...Option) *Service {
	if settings.Binary == "" {
		settings.Binary = "mvt-android"
	}
	if settings.ADBBinary == "" {
		settings.ADBBinary = "adb"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		settings: settings,
		runner:   runner,
		parser:   parser,
		logger:   logger.WithField(logging.ComponentField, "mvt"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckADB analyzes a device connected over adb
func (s *Service) CheckADB(ctx context.Context, opts CheckADBOptions) (*Scan, error) {
	if opts.OutputFolder == "" {
		opts.OutputFolder = s.settings.OutputFolder
	}
	return s.run(ctx, SubCheckADB, opts.Args(), nil)
}

// CheckAndroidQF analyzes an AndroidQF acquisition
func (s *Service) CheckAndroidQF(ctx context.Context, opts CheckAndroidQFOptions) (*Scan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.OutputFolder == "" {
		opts.OutputFolder = s.settings.OutputFolder
	}
	return s.run(ctx, SubCheckAndroidQF, opts.Args(), nil)
}

// CheckBackup pulls an Android backup with adb, restarts the adb server and analyzes the file
func (s *Service) CheckBackup(ctx context.Context, opts CheckBackupOptions) (*Scan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	backup := execution.Command{
		Name: s.settings.ADBBinary,
		Args: []string{"backup", "-nocompress", "com.android.providers.telephony", "-f", opts.Path},
	}
	if out, err := s.runner.Run(ctx, backup); err != nil {
		if cond := logparse.DetectCondition(logparse.Normalize(out.Text())); cond != nil {
			return nil, cond
		}
		return nil, err
	}

	// mvt talks to its own adb client; a running server blocks it
	kill := execution.Command{Name: s.settings.ADBBinary, Args: []string{"kill-server"}}
	if _, err := s.runner.Run(ctx, kill); err != nil {
		s.logger.WithError(err).Warn("adb kill-server failed")
	}

	return s.run(ctx, SubCheckBackup, opts.Args(), nil)
}

// CheckBugreport analyzes a bugreport archive
func (s *Service) CheckBugreport(ctx context.Context, opts CheckBugreportOptions) (*Scan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.OutputFolder == "" {
		opts.OutputFolder = s.settings.OutputFolder
	}
	return s.run(ctx, SubCheckBugreport, opts.Args(), nil)
}

// CheckIOCs compares stored results against indicators
func (s *Service) CheckIOCs(ctx context.Context, opts CheckIOCsOptions) (*Scan, error) {
	if opts.Folder == "" {
		opts.Folder = s.settings.IndicatorsDir
	}
	if err := required("folder", opts.Folder); err != nil {
		return nil, err
	}
	return s.run(ctx, SubCheckIOCs, opts.Args(), nil)
}

// DownloadAPKs extracts installed packages, optionally checking them on VirusTotal
func (s *Service) DownloadAPKs(ctx context.Context, opts DownloadAPKsOptions) (*Scan, error) {
	if opts.OutputFolder == "" {
		opts.OutputFolder = s.settings.OutputFolder
	}

	var env []string
	if opts.VirusTotal {
		key, err := s.virusTotalKey()
		if err != nil {
			return nil, err
		}
		env = append(env, VirusTotalKey+"="+key)
	}
	return s.run(ctx, SubDownloadAPKs, opts.Args(), env)
}

// DownloadIOCs refreshes the public STIX2 indicators
func (s *Service) DownloadIOCs(ctx context.Context) (*Scan, error) {
	scan, err := s.runWith(ctx, SubDownloadIOCs, nil, nil, func(result *logparse.ParseResult) {
		result.Messages = append(result.Messages, logparse.Finding{
			Category: catalog.CategoryIOCUpdate,
			Message:  "Atualização concluída com sucesso!",
		})
	})
	if err != nil {
		s.logger.WithError(err).Warn("Indicator update failed")
		return nil, apperr.Wrap(apperr.IOCUpdateFailed, err, nil)
	}
	return scan, nil
}

func (s *Service) virusTotalKey() (string, error) {
	if s.secrets != nil {
		key, err := s.secrets.Get(VirusTotalKey)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", apperr.New(apperr.ConfigNotFound, map[string]interface{}{"variable": VirusTotalKey}).
		WithDetail("Variável de ambiente " + VirusTotalKey + " não definida.")
}

// run executes one subcommand and parses its output. A failed process is checked
// for a short-circuit condition before its command error is reported.
func (s *Service) run(ctx context.Context, sub string, args, env []string) (*Scan, error) {
	return s.runWith(ctx, sub, args, env, nil)
}

// runWith is run with a hook that completes a successful result before it is
// recorded and returned.
func (s *Service) runWith(ctx context.Context, sub string, args, env []string, finish func(*logparse.ParseResult)) (*Scan, error) {
	line := append([]string{sub}, args...)
	cmd := execution.Command{
		Name:    s.settings.Binary,
		Args:    line,
		Env:     env,
		Timeout: s.settings.Timeout,
		LogArgs: Redact(line),
	}

	start := time.Now()
	record := history.NewRecord(sub, Redact(args), start)
	logger := s.logger.WithFields(logrus.Fields{"subcommand": sub, "scan_id": record.ID})
	logger.Info("Starting mvt-android")

	result, err := s.execute(ctx, cmd)
	record.Duration = time.Since(start)
	if s.observer != nil {
		s.observer.ObserveCommand(sub, record.Duration, err)
	}

	if err != nil {
		record.ErrorCode = string(apperr.From(err).Code)
	} else {
		if finish != nil {
			finish(result)
		}
		record.Success = result.Success
		record.Result = result
	}
	s.save(ctx, record, logger)

	if err != nil {
		logger.WithFields(apperr.From(err).Fields()).Warn("mvt-android run failed")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"entries":  len(result.Logs),
		"findings": len(result.Messages),
		"duration": record.Duration,
	}).Info("mvt-android finished")
	return &Scan{ID: record.ID, Result: result}, nil
}

func (s *Service) execute(ctx context.Context, cmd execution.Command) (*logparse.ParseResult, error) {
	out, err := s.runner.Run(ctx, cmd)
	if err != nil {
		if cond := logparse.DetectCondition(logparse.Normalize(out.Text())); cond != nil {
			return nil, cond
		}
		return nil, err
	}
	return s.parser.Parse(out.Text())
}

func (s *Service) save(ctx context.Context, record *history.Record, logger logrus.FieldLogger) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, record); err != nil {
		logger.WithError(err).Error("Failed to record scan")
	}
}
