/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: envfile.go
Description: KEY=value settings file used for secrets such as the VirusTotal API key.
Reads go through viper's dotenv support; writes replace the matching line in place
and keep every other line untouched.
*/

package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/spf13/viper"
)

// VirusTotalKey is the variable mvt-android reads its VirusTotal key from
const VirusTotalKey = "MVT_VT_API_KEY"

// EnvFile reads and updates a dotenv file
type EnvFile struct {
	path string
	mu   sync.Mutex
}

// NewEnvFile creates an accessor for path
func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

// Path returns the file location
func (e *EnvFile) Path() string {
	return e.path
}

// Get returns the value of key, empty when the file or key is missing
func (e *EnvFile) Get(key string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", mapFileError(err, e.path)
	}

	v := viper.New()
	v.SetConfigType("env")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return "", apperr.Wrap(apperr.EncodingError, err, map[string]interface{}{"path": e.path})
	}
	return v.GetString(key), nil
}

// Set writes key=value, replacing an existing assignment or appending a new one
func (e *EnvFile) Set(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return apperr.New(apperr.MissingParameter, nil).WithDetail("Chave não definida!")
	}
	if strings.TrimSpace(value) == "" {
		return apperr.New(apperr.MissingValue, nil).WithDetail("Valor não definido!")
	}
	if strings.ContainsAny(value, "\r\n") || !utf8.ValidString(value) {
		return apperr.New(apperr.EncodingError, map[string]interface{}{"key": key})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := os.ReadFile(e.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return mapFileError(err, e.path)
	}

	assignment := key + "=" + value
	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimPrefix(line, "export "), key+"=") {
			lines[i] = assignment
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, assignment)
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(e.path, []byte(out), 0600); err != nil {
		return mapFileError(err, e.path)
	}
	return nil
}

func mapFileError(err error, path string) error {
	payload := map[string]interface{}{"path": path}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperr.Wrap(apperr.ConfigFileNotFound, err, payload)
	case errors.Is(err, fs.ErrPermission):
		return apperr.Wrap(apperr.PermissionDenied, err, payload)
	default:
		return apperr.Wrap(apperr.IOError, err, payload)
	}
}
