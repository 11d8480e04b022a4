/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared setup for the FVM commands: configuration loading, logging and
construction of the parsing pipeline.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/kleascm/fvm/pkg/catalog"
	"github.com/kleascm/fvm/pkg/classifier"
	"github.com/kleascm/fvm/pkg/config"
	"github.com/kleascm/fvm/pkg/logging"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../commands.Version=..."
var Version = "dev"

// LoadConfig resolves configuration from defaults, file, environment and flags
func LoadConfig() (*config.Config, error) {
	v := viper.GetViper()
	return config.Load(v, v.GetString("config"))
}

// SetupLogging creates the application logger from cfg. Console output goes to
// stderr so command output on stdout stays machine readable.
func SetupLogging(cfg *config.Config) (*logging.Logger, error) {
	if cfg.Log.Output == nil {
		cfg.Log.Output = os.Stderr
	}
	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// setup loads configuration and logging together
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// BuildParser loads the configured catalog and assembles the pipeline
func BuildParser(cfg *config.Config, logger logrus.FieldLogger, opts ...logparse.ParserOption) (*logparse.Parser, *classifier.Classifier, error) {
	cat, err := catalog.NewLazy(cfg.Catalog.Path).Get()
	if err != nil {
		return nil, nil, err
	}

	cls := classifier.New(cat, logger)
	for _, issue := range cls.Skipped() {
		logger.WithField("issue", issue.String()).Warn("Catalog row skipped")
	}
	logger.WithFields(logrus.Fields{
		"source":   cat.Source,
		"patterns": cls.Len(),
	}).Debug("Pattern catalog loaded")

	return logparse.NewParser(cls, logger, opts...), cls, nil
}
