/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: catalog.go
Description: Pattern catalog used by the security classifier. Rows map phrases found in
mvt-android output to a category and a localized remediation message. Catalogs are
loaded from JSON or YAML files and fall back to an embedded default table.
*/

package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kleascm/fvm/pkg/apperr"
	"gopkg.in/yaml.v3"
)

//go:embed resources/log_message_patterns.json
var defaultCatalog []byte

// DefaultSource names the embedded catalog
const DefaultSource = "embedded:log_message_patterns.json"

// Categories used by the default catalog
const (
	CategoryErrorAnalysis  = "Erro na Análise"
	CategoryPossibleAttack = "Possível Invasão"
	CategorySuspiciousApp  = "Aplicativos Suspeitos"
	CategorySystemSecurity = "Segurança do Sistema"
	CategoryInformation    = "Informativo"
	CategoryVirusTotal     = "VirusTotal"
	CategoryStalking       = "Stalking"
	CategoryIOCUpdate      = "Atualização IOCs"
)

// Pattern is one catalog row
type Pattern struct {
	Pattern   string `json:"pattern" yaml:"pattern"`
	IsRegex   *bool  `json:"is_regex,omitempty" yaml:"is_regex,omitempty"`
	Category  string `json:"category" yaml:"category"`
	Message   string `json:"message" yaml:"message"`
	ErrorCode string `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	When      string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Regex reports whether Pattern is a regular expression. Rows default to regex.
func (p Pattern) Regex() bool {
	return p.IsRegex == nil || *p.IsRegex
}

// Expression returns the RE2 source for the row
func (p Pattern) Expression() string {
	if p.Regex() {
		return p.Pattern
	}
	return regexp.QuoteMeta(p.Pattern)
}

// Catalog is an ordered, read-only list of patterns
type Catalog struct {
	Source   string    `json:"source" yaml:"source"`
	Version  string    `json:"version,omitempty" yaml:"version,omitempty"`
	Patterns []Pattern `json:"patterns" yaml:"patterns"`
}

// Format of a catalog file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension, defaulting to JSON
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a catalog file. A missing file is a ResourceMissing condition and
// undecodable or incomplete content is ResourceMalformed.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(apperr.ResourceMissing, err, map[string]interface{}{"path": path})
		}
		return nil, apperr.Wrap(apperr.IOError, err, map[string]interface{}{"path": path})
	}
	return Parse(data, FormatFor(path), path)
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatJSON, DefaultSource)
}

// Parse decodes a catalog. Both a bare list of rows and an object with a
// "patterns" key are accepted.
func Parse(data []byte, format Format, source string) (*Catalog, error) {
	c := &Catalog{Source: source}

	var err error
	switch format {
	case FormatYAML:
		err = decodeYAML(data, c)
	default:
		err = decodeJSON(data, c)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ResourceMalformed, err, map[string]interface{}{"path": source})
	}

	c.Source = source
	if err := c.checkRows(); err != nil {
		return nil, apperr.Wrap(apperr.ResourceMalformed, err, map[string]interface{}{"path": source})
	}
	return c, nil
}

func decodeJSON(data []byte, c *Catalog) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &c.Patterns)
	}
	return json.Unmarshal(trimmed, c)
}

func decodeYAML(data []byte, c *Catalog) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if len(node.Content) == 0 {
		return errors.New("empty document")
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		return node.Content[0].Decode(&c.Patterns)
	}
	return node.Content[0].Decode(c)
}

// checkRows rejects rows missing required fields or naming an unknown error code.
// Broken expressions are not rejected here; the classifier skips them.
func (c *Catalog) checkRows() error {
	if len(c.Patterns) == 0 {
		return errors.New("catalog has no patterns")
	}
	for i, p := range c.Patterns {
		switch {
		case strings.TrimSpace(p.Pattern) == "":
			return fmt.Errorf("row %d: pattern is required", i)
		case strings.TrimSpace(p.Category) == "":
			return fmt.Errorf("row %d: category is required", i)
		case strings.TrimSpace(p.Message) == "":
			return fmt.Errorf("row %d: message is required", i)
		case p.ErrorCode != "" && !apperr.Code(p.ErrorCode).Valid():
			return fmt.Errorf("row %d: unknown error_code %q", i, p.ErrorCode)
		}
	}
	return nil
}

// Issue describes a row problem found by Validate
type Issue struct {
	Row     int
	Pattern string
	Err     error
}

func (i Issue) String() string {
	return fmt.Sprintf("row %d (%s): %v", i.Row, i.Pattern, i.Err)
}

// Validate compiles every row and reports the ones the classifier would skip
func (c *Catalog) Validate() []Issue {
	var issues []Issue
	for i, p := range c.Patterns {
		if _, err := regexp.Compile("(?im)" + p.Expression()); err != nil {
			issues = append(issues, Issue{Row: i, Pattern: p.Pattern, Err: apperr.Wrap(apperr.InvalidRegex, err, nil)})
		}
	}
	return issues
}

// Categories lists the distinct categories in catalog order
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Patterns {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}
