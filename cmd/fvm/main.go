/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line entry point for FVM. Serves the HTTP API and offers offline
tools for parsing captured mvt-android output, checking pattern catalogs and listing
attached devices.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/fvm/cmd/fvm/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fvm",
		Short: "FVM - mvt-android analysis service",
		Long: `FVM runs mvt-android against Android devices and acquisitions, turns its
console output into structured log entries and classifies the warnings it prints
into user-facing security findings.`,
		Version:       commands.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file path (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().String("log-dir", "./logs", "Log output directory, empty disables the log file")
	rootCmd.PersistentFlags().String("catalog", "", "Pattern catalog file (json or yaml), embedded catalog when empty")
	rootCmd.PersistentFlags().String("mvt-binary", "mvt-android", "mvt-android executable")
	rootCmd.PersistentFlags().String("adb-binary", "adb", "adb executable")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log.dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("mvt.binary", rootCmd.PersistentFlags().Lookup("mvt-binary"))
	viper.BindPFlag("mvt.adb_binary", rootCmd.PersistentFlags().Lookup("adb-binary"))

	// serve
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the JSON API that runs mvt-android subcommands, lists devices, stores
the VirusTotal key and keeps a history of past scans.`,
		RunE: commands.RunServe,
	}
	serveCmd.Flags().String("addr", ":5000", "Listen address")
	serveCmd.Flags().String("output-folder", "/tmp/fvm", "Default folder for mvt JSON results")
	serveCmd.Flags().Duration("timeout", 10*time.Minute, "Timeout per mvt-android run")
	serveCmd.Flags().String("postgres-dsn", "", "PostgreSQL DSN for scan history, in-memory history when empty")
	serveCmd.Flags().String("env-file", ".env", "File holding the VirusTotal API key")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("mvt.output_folder", serveCmd.Flags().Lookup("output-folder"))
	viper.BindPFlag("mvt.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("history.postgres_dsn", serveCmd.Flags().Lookup("postgres-dsn"))
	viper.BindPFlag("env_file", serveCmd.Flags().Lookup("env-file"))
	viper.BindPFlag("metrics.enabled", serveCmd.Flags().Lookup("metrics"))
	rootCmd.AddCommand(serveCmd)

	// parse
	parseCmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse captured mvt-android output",
		Long: `Run the parsing pipeline over a saved mvt-android console log and print
the result as JSON. Reads standard input when the file is "-" or omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: commands.RunParse,
	}
	parseCmd.Flags().Bool("pretty", true, "Indent the JSON output")
	rootCmd.AddCommand(parseCmd)

	// catalog
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect pattern catalogs",
	}
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "validate [path]",
		Short: "Check that every catalog row loads and compiles",
		Args:  cobra.MaximumNArgs(1),
		RunE:  commands.RunCatalogValidate,
	})
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog rows by category",
		RunE:  commands.RunCatalogList,
	})
	rootCmd.AddCommand(catalogCmd)

	// devices
	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "List devices attached to adb",
		RunE:  commands.RunDevices,
	})

	// version
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   commands.PrintVersion,
	})

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
