/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: classifier.go
Description: Security classifier. Scans the whole normalized output once per catalog
row, in catalog order, and emits one finding per match. Rows whose expression does
not compile are logged and skipped without affecting the remaining rows. A row may
carry a boolean "when" expression that every match must satisfy.
*/

package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/catalog"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/sirupsen/logrus"
)

// Env is the environment visible to "when" expressions
type Env struct {
	Match    string `expr:"match"`
	Line     string `expr:"line"`
	Category string `expr:"category"`
	Text     string `expr:"text"`
}

type rule struct {
	row     int
	pattern catalog.Pattern
	re      *regexp.Regexp
	when    *vm.Program
}

// Classifier holds the compiled catalog. It is immutable after New.
type Classifier struct {
	source  string
	rules   []rule
	skipped []catalog.Issue
	logger  logrus.FieldLogger
}

// New compiles every catalog row case-insensitively in multi-line mode
func New(c *catalog.Catalog, logger logrus.FieldLogger) *Classifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cl := &Classifier{source: c.Source, logger: logger}

	for i, p := range c.Patterns {
		re, err := regexp.Compile("(?im)" + p.Expression())
		if err != nil {
			cl.skip(i, p, apperr.Wrap(apperr.InvalidRegex, err, map[string]interface{}{
				"pattern": p.Pattern,
				"row":     i,
				"catalog": c.Source,
			}))
			continue
		}

		r := rule{row: i, pattern: p, re: re}
		if p.When != "" {
			program, err := expr.Compile(p.When, expr.Env(Env{}), expr.AsBool())
			if err != nil {
				cl.skip(i, p, apperr.Wrap(apperr.ResourceMalformed, err, map[string]interface{}{
					"when":    p.When,
					"row":     i,
					"catalog": c.Source,
				}))
				continue
			}
			r.when = program
		}
		cl.rules = append(cl.rules, r)
	}

	return cl
}

func (c *Classifier) skip(row int, p catalog.Pattern, err *apperr.Error) {
	c.skipped = append(c.skipped, catalog.Issue{Row: row, Pattern: p.Pattern, Err: err})
	c.logger.WithFields(err.Fields()).Error("Skipping catalog row")
}

// Len returns the number of usable rows
func (c *Classifier) Len() int {
	return len(c.rules)
}

// Skipped returns the rows rejected at compile time
func (c *Classifier) Skipped() []catalog.Issue {
	return c.skipped
}

// Classify returns findings in catalog order, then match order. Zero-length
// matches are ignored. No findings at all is a NoPatternMatch condition.
func (c *Classifier) Classify(normalized string) ([]logparse.Finding, error) {
	var findings []logparse.Finding

	for _, r := range c.rules {
		for _, loc := range r.re.FindAllStringIndex(normalized, -1) {
			if loc[0] == loc[1] {
				continue
			}
			match := normalized[loc[0]:loc[1]]

			if r.when != nil && !c.admit(r, normalized, match, loc[0]) {
				continue
			}

			findings = append(findings, logparse.Finding{
				Category:        r.pattern.Category,
				Message:         r.pattern.Message,
				OriginalMessage: strings.TrimSpace(match),
				Code:            r.pattern.ErrorCode,
			})
		}
	}

	if len(findings) == 0 {
		return nil, apperr.New(apperr.NoPatternMatch, map[string]interface{}{
			"catalog":  c.source,
			"patterns": len(c.rules),
		})
	}
	return findings, nil
}

func (c *Classifier) admit(r rule, text, match string, start int) bool {
	out, err := expr.Run(r.when, Env{
		Match:    match,
		Line:     lineAt(text, start),
		Category: r.pattern.Category,
		Text:     text,
	})
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"row":   r.row,
			"when":  r.pattern.When,
			"error": err.Error(),
		}).Warn("Catalog condition failed")
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func lineAt(text string, idx int) string {
	start := strings.LastIndexByte(text[:idx], '\n') + 1
	end := strings.IndexByte(text[idx:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : idx+end]
}

// Classify compiles cat and classifies normalized in one call
func Classify(normalized string, cat *catalog.Catalog, logger logrus.FieldLogger) ([]logparse.Finding, error) {
	if cat == nil {
		return nil, fmt.Errorf("classify: %w", apperr.New(apperr.ResourceMissing, nil))
	}
	return New(cat, logger).Classify(normalized)
}
