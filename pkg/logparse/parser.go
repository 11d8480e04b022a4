/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser.go
Description: Parsing pipeline. Runs normalization, short-circuit detection, extraction,
classification and assembly over one captured tool output. The parser holds no
per-call state and is safe for concurrent use as long as its classifier is.
*/

package logparse

import (
	"errors"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/sirupsen/logrus"
)

// Classifier matches normalized text against a pattern catalog
type Classifier interface {
	Classify(normalized string) ([]Finding, error)
}

// Observer receives the outcome of every parse
type Observer interface {
	ObserveParse(duration time.Duration, result *ParseResult, err error)
}

// Parser runs the full pipeline
type Parser struct {
	classifier Classifier
	logger     logrus.FieldLogger
	observer   Observer
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithObserver attaches an observer, typically the metrics collector
func WithObserver(o Observer) ParserOption {
	return func(p *Parser) {
		p.observer = o
	}
}

// NewParser creates a parser. A nil logger falls back to the standard logger.
func NewParser(classifier Classifier, logger logrus.FieldLogger, opts ...ParserOption) *Parser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Parser{classifier: classifier, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse turns raw tool output into a ParseResult or a typed condition.
// A text with no catalog hits is a clean result with no messages.
func (p *Parser) Parse(raw string) (*ParseResult, error) {
	start := time.Now()
	result, err := p.parse(raw)
	if p.observer != nil {
		p.observer.ObserveParse(time.Since(start), result, err)
	}
	return result, err
}

func (p *Parser) parse(raw string) (*ParseResult, error) {
	normalized := Normalize(raw)

	if err := DetectCondition(normalized); err != nil {
		if e, ok := apperr.As(err); ok {
			p.logger.WithFields(e.Fields()).Warn("Short-circuit condition in tool output")
		}
		return nil, err
	}

	logs := Extract(normalized)
	if Tagged(logs) == 0 {
		err := apperr.New(apperr.UnparseableOutput, map[string]interface{}{"output": normalized})
		p.logger.WithField("length", len(normalized)).Warn("No severity-tagged lines in tool output")
		return nil, err
	}

	var findings []Finding
	if p.classifier != nil {
		var err error
		findings, err = p.classifier.Classify(normalized)
		switch {
		case errors.Is(err, apperr.ErrNoPatternMatch):
			p.logger.Debug("No catalog pattern matched, reporting clean result")
			findings = nil
		case err != nil:
			return nil, err
		}
	}

	result := Assemble(logs, findings)
	p.logger.WithFields(logrus.Fields{
		"entries":  len(result.Logs),
		"findings": len(result.Messages),
		"success":  result.Success,
	}).Debug("Tool output parsed")

	return &result, nil
}
