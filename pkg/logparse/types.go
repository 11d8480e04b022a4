/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core data types of the mvt output parser. Defines severities, log entries,
security findings and the combined parse result returned to callers.
*/

package logparse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the log-level tag printed by mvt-android
type Severity string

const (
	SeverityNone     Severity = "-"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity maps a token (case-insensitive) to a Severity.
// "NONE", "-" and the empty string map to SeverityNone.
func ParseSeverity(token string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "", "-", "NONE":
		return SeverityNone, nil
	case "INFO":
		return SeverityInfo, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "CRITICAL":
		return SeverityCritical, nil
	}
	return SeverityNone, fmt.Errorf("unknown severity: %q", token)
}

// Name returns the symbolic name, NONE for untagged lines
func (s Severity) Name() string {
	if s == SeverityNone || s == "" {
		return "NONE"
	}
	return string(s)
}

// UnmarshalJSON accepts both "-" and symbolic names
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// LogEntry is one logical line of tool output
type LogEntry struct {
	ID      int      `json:"id"`
	Status  Severity `json:"status"`
	Message string   `json:"message"`
}

// Finding is a classified security observation
type Finding struct {
	Category        string `json:"category"`
	Message         string `json:"message"`
	OriginalMessage string `json:"original_message"`
	Code            string `json:"code,omitempty"`
}

// ParseResult is the structured view of one tool run
type ParseResult struct {
	Success  bool       `json:"success"`
	Logs     []LogEntry `json:"logs"`
	Messages []Finding  `json:"messages"`
}

// Counts tallies entries per severity
func (r *ParseResult) Counts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, entry := range r.Logs {
		counts[entry.Status]++
	}
	return counts
}
