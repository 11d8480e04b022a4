/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: options.go
Description: Request options for each mvt-android subcommand and the argument
vectors built from them. Field names follow the JSON bodies accepted by the API.
*/

package mvt

import (
	"strings"

	"github.com/kleascm/fvm/pkg/apperr"
)

// Subcommand names as passed to mvt-android
const (
	SubCheckADB       = "check-adb"
	SubCheckAndroidQF = "check-androidqf"
	SubCheckBackup    = "check-backup"
	SubCheckBugreport = "check-bugreport"
	SubCheckIOCs      = "check-iocs"
	SubDownloadAPKs   = "download-apks"
	SubDownloadIOCs   = "download-iocs"
)

// redacted replaces secret values in stored argument lists
const redacted = "********"

// CheckADBOptions configures check-adb
type CheckADBOptions struct {
	Serial         string   `json:"serial"`
	IOCFiles       []string `json:"iocs_files"`
	OutputFolder   string   `json:"output_folder"`
	Fast           bool     `json:"fast"`
	ListModules    bool     `json:"list_modules"`
	Module         string   `json:"module"`
	NonInteractive bool     `json:"non_interactive"`
	BackupPassword string   `json:"backup_password"`
	Verbose        bool     `json:"verbose"`
}

// Args builds the argument vector after the subcommand
func (o CheckADBOptions) Args() []string {
	var a argv
	a.value("--serial", o.Serial)
	a.iocs(o.IOCFiles)
	a.value("--output", o.OutputFolder)
	a.flag("--fast", o.Fast)
	a.flag("--list-modules", o.ListModules)
	a.value("--module", o.Module)
	a.flag("--non-interactive", o.NonInteractive)
	a.value("--backup-password", o.BackupPassword)
	a.flag("--verbose", o.Verbose)
	return a
}

// CheckAndroidQFOptions configures check-androidqf
type CheckAndroidQFOptions struct {
	Path           string   `json:"androidqf_path"`
	IOCFiles       []string `json:"iocs_files"`
	OutputFolder   string   `json:"output_dir"`
	ListModules    bool     `json:"list_modules"`
	Module         string   `json:"module"`
	Hashes         bool     `json:"hashes"`
	NonInteractive bool     `json:"non_interactive"`
	BackupPassword string   `json:"backup_password"`
	Verbose        bool     `json:"verbose"`
}

func (o CheckAndroidQFOptions) Validate() error {
	return required("androidqf_path", o.Path)
}

func (o CheckAndroidQFOptions) Args() []string {
	a := argv{o.Path}
	a.iocs(o.IOCFiles)
	a.value("--output", o.OutputFolder)
	a.flag("--list-modules", o.ListModules)
	a.value("--module", o.Module)
	a.flag("--hashes", o.Hashes)
	a.flag("--non-interactive", o.NonInteractive)
	a.value("--backup-password", o.BackupPassword)
	a.flag("--verbose", o.Verbose)
	return a
}

// CheckBackupOptions configures check-backup. The backup is first pulled with adb.
type CheckBackupOptions struct {
	Path           string   `json:"backup_path"`
	IOCFiles       []string `json:"iocs_files"`
	OutputFolder   string   `json:"output_folder"`
	ListModules    bool     `json:"list_modules"`
	NonInteractive bool     `json:"non_interactive"`
	BackupPassword string   `json:"backup_password"`
	Verbose        bool     `json:"verbose"`
}

func (o CheckBackupOptions) Validate() error {
	return required("backup_path", o.Path)
}

func (o CheckBackupOptions) Args() []string {
	a := argv{o.Path}
	a.iocs(o.IOCFiles)
	a.value("--output", o.OutputFolder)
	a.flag("--list-modules", o.ListModules)
	a.flag("--non-interactive", o.NonInteractive)
	a.value("--backup-password", o.BackupPassword)
	a.flag("--verbose", o.Verbose)
	return a
}

// CheckBugreportOptions configures check-bugreport
type CheckBugreportOptions struct {
	Path         string   `json:"bugreport_path"`
	IOCFiles     []string `json:"iocs_files"`
	OutputFolder string   `json:"output_folder"`
	ListModules  bool     `json:"list_modules"`
	Module       string   `json:"module"`
	Verbose      bool     `json:"verbose"`
}

func (o CheckBugreportOptions) Validate() error {
	return required("bugreport_path", o.Path)
}

func (o CheckBugreportOptions) Args() []string {
	a := argv{o.Path}
	a.iocs(o.IOCFiles)
	a.value("--output", o.OutputFolder)
	a.flag("--list-modules", o.ListModules)
	a.value("--module", o.Module)
	a.flag("--verbose", o.Verbose)
	return a
}

// CheckIOCsOptions configures check-iocs. An empty Folder uses the indicators directory.
type CheckIOCsOptions struct {
	Folder      string   `json:"folder"`
	IOCFiles    []string `json:"iocs_files"`
	ListModules bool     `json:"list_modules"`
	Module      string   `json:"module"`
}

func (o CheckIOCsOptions) Args() []string {
	a := argv{o.Folder}
	a.iocs(o.IOCFiles)
	a.flag("--list-modules", o.ListModules)
	a.value("--module", o.Module)
	return a
}

// DownloadAPKsOptions configures download-apks
type DownloadAPKsOptions struct {
	Serial       string `json:"serial"`
	AllAPKs      bool   `json:"all_apks"`
	VirusTotal   bool   `json:"virustotal"`
	OutputFolder string `json:"output_folder"`
	FromFile     string `json:"from_file"`
	Verbose      bool   `json:"verbose"`
}

func (o DownloadAPKsOptions) Args() []string {
	var a argv
	a.value("--serial", o.Serial)
	a.flag("--all-apks", o.AllAPKs)
	a.flag("--virustotal", o.VirusTotal)
	a.value("--output", o.OutputFolder)
	a.value("--from-file", o.FromFile)
	a.flag("--verbose", o.Verbose)
	return a
}

type argv []string

func (a *argv) flag(name string, on bool) {
	if on {
		*a = append(*a, name)
	}
}

func (a *argv) value(name, v string) {
	if v != "" {
		*a = append(*a, name, v)
	}
}

func (a *argv) iocs(files []string) {
	for _, f := range files {
		if f != "" {
			*a = append(*a, "-i", f)
		}
	}
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.New(apperr.MissingParameter, map[string]interface{}{"parameter": name}).
			WithDetail("Parâmetro obrigatório ausente: " + name)
	}
	return nil
}

// Redact masks the value following every secret flag
func Redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--backup-password" {
			out[i+1] = redacted
			i++
		}
	}
	return out
}
