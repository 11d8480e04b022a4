/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: normalizer.go
Description: Output normalizer. Removes terminal escape sequences, folds the line
wrapping introduced by the tool's console renderer and re-splits the stream so that
every severity-tagged record sits on its own line.
*/

package logparse

import (
	"regexp"
	"strings"
)

const severityTokens = `INFO|WARNING|ERROR|CRITICAL|DEBUG`

var (
	ansiPattern       = regexp.MustCompile(`\x1b\[[0-?\s\p{Z}]*[ -/]*[@-~]`)
	whitespacePattern = regexp.MustCompile(`[\s\v\p{Z}\x{0085}]+`)
	clockPattern      = regexp.MustCompile(`\b(?:\d{2}:\d{2}:\d{2} )+(` + severityTokens + `)\b`)
	tagGluePattern    = regexp.MustCompile(`\b(` + severityTokens + `) \[`)
	splitPattern      = regexp.MustCompile(` (` + severityTokens + `)\b`)
)

// Normalize returns one line per severity-tagged record with no ANSI noise and
// no whitespace run longer than a single space or newline. Passes repeat until the
// text is stable, so Normalize is idempotent.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := raw
	for {
		next := normalizePass(text)
		if next == text {
			return next
		}
		text = next
	}
}

func normalizePass(text string) string {
	// Escapes may be split by wrapping ("ESC[1\n;31m"); a leftover ESC is dropped.
	text = replaceUntilStable(ansiPattern, text, "")
	text = strings.ReplaceAll(text, "\x1b", "")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	// Wrapped continuations fold back into the record they belong to.
	text = whitespacePattern.ReplaceAllString(text, " ")

	// "02:21:17 INFO" -> "INFO", "INFO [mvt]" -> "INFO[mvt]"
	text = replaceUntilStable(clockPattern, text, "$1")
	text = tagGluePattern.ReplaceAllString(text, "$1[")

	text = splitPattern.ReplaceAllString(text, "\n$1")

	return strings.TrimSpace(text)
}

func replaceUntilStable(re *regexp.Regexp, text, repl string) string {
	for {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			return next
		}
		text = next
	}
}
