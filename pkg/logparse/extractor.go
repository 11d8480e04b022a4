/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: extractor.go
Description: Log entry extractor. Turns normalized text into ordered, leveled records.
*/

package logparse

import (
	"regexp"
	"strings"
)

// <SEVERITY>[<source-tag>] <message>; the tag is optional and discarded
var entryPattern = regexp.MustCompile(`^(INFO|WARNING|ERROR|CRITICAL)(?:\[[^\]]*\]|\b)\s*(.*)$`)

// Extract converts normalized text into log entries. Every non-empty line yields an
// entry; lines without a severity token get SeverityNone and keep the whole line.
// IDs are assigned 0..N-1 in line order.
func Extract(normalized string) []LogEntry {
	entries := make([]LogEntry, 0)
	if normalized == "" {
		return entries
	}

	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry := LogEntry{ID: len(entries), Status: SeverityNone, Message: line}
		if m := entryPattern.FindStringSubmatch(line); m != nil {
			entry.Status = Severity(m[1])
			entry.Message = strings.TrimSpace(m[2])
		}
		entries = append(entries, entry)
	}

	return entries
}

// Tagged reports how many entries carry a severity
func Tagged(entries []LogEntry) int {
	n := 0
	for _, e := range entries {
		if e.Status != SeverityNone {
			n++
		}
	}
	return n
}
