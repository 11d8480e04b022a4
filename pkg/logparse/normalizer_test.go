/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: normalizer_test.go
Description: Tests for output normalization.
*/

package logparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var normalizeCases = []struct {
	name string
	raw  string
	want string
}{
	{"empty", "", ""},
	{"whitespace only", "  \n\t\r\n ", ""},
	{"ansi", "\x1b[32mINFO\x1b[0m     [mvt] hello", "INFO[mvt] hello"},
	{"nested ansi", "\x1b[\x1b[0m0mINFO[a] x", "INFO[a] x"},
	{"ansi split by tab", "INFO[a] x\x1b[\tmy", "INFO[a] xy"},
	{"ansi split by nbsp", "INFO[a] x\x1b[\u00a0my", "INFO[a] xy"},
	{"ansi split by newline", "INFO[a] x\x1b[1\n;31my", "INFO[a] xy"},
	{"stray escape", "INFO[a] x\x1b]0;title", "INFO[a] x]0;title"},
	{"wrapped", "INFO [mvt] Parsing file at path\n   /very/long/path\nWARNING [mvt] x", "INFO[mvt] Parsing file at path /very/long/path\nWARNING[mvt] x"},
	{"line endings", "INFO[a] one\r\nERROR[b] two\rCRITICAL[c] three", "INFO[a] one\nERROR[b] two\nCRITICAL[c] three"},
	{"clock prefix", "10:00:01 INFO [mvt] a\n10:00:02 DEBUG [mvt] b", "INFO[mvt] a\nDEBUG[mvt] b"},
	{"banner", "  MVT - Mobile Verification Toolkit\n   Version: 2.5.4\n INFO [mvt] start", "MVT - Mobile Verification Toolkit Version: 2.5.4\nINFO[mvt] start"},
	{"lowercase token", "INFO[a] an info token stays", "INFO[a] an info token stays"},
	{"token prefix of word", "INFO[a] INFORMATION leak", "INFO[a] INFORMATION leak"},
	{"tabs and blank lines", "INFO[a]\t\tone\n\n\n\nINFO[b]   two", "INFO[a] one\nINFO[b] two"},
}

func TestNormalize(t *testing.T) {
	for _, tc := range normalizeCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		sampleOutput,
		"CRITICAL [x]   \x1b[1mbold\x1b[0m\n\n  ERROR  [y] \r\n z",
		"  INFO INFO [a] b  WARNING",
		"12:00:00 12:00:00 INFO [a] twice stamped",
		" INFO[a] wide space",
	}
	for _, tc := range normalizeCases {
		inputs = append(inputs, tc.raw)
	}

	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "input %q", raw)
		assert.NotContains(t, once, "  ")
		assert.NotContains(t, once, "\n\n")
		assert.NotContains(t, once, "\x1b[")
	}
}

func FuzzNormalize(f *testing.F) {
	f.Add(sampleOutput)
	for _, tc := range normalizeCases {
		f.Add(tc.raw)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		once := Normalize(raw)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", raw, once, twice)
		}
		if strings.Contains(once, "\x1b[") {
			t.Fatalf("escape left in %q", once)
		}
	})
}

func TestNormalizeSampleOutput(t *testing.T) {
	lines := strings.Split(Normalize(sampleOutput), "\n")
	assert.Equal(t, "MVT - Mobile Verification Toolkit https://mvt.re Version: 2.5.4", lines[0])
	assert.Equal(t, "INFO[mvt.android.cmd_check_adb] Parsing STIX2 indicators file at path /home/user/.local/share/mvt/indicators/nso_pegasus.stix2", lines[1])
	assert.Equal(t, "CRITICAL[mvt.android.modules.adb.chrome_history] No device found. Make sure it is connected and unlocked.", lines[len(lines)-1])
}

const sampleOutput = `

        MVT - Mobile Verification Toolkit
                https://mvt.re
                Version: 2.5.4


02:21:17 INFO     [mvt.android.cmd_check_adb] Parsing STIX2 indicators file at path
                        /home/user/.local/share/mvt/indicators/nso_pegasus.stix2
         INFO     [mvt.android.cmd_check_adb] Loaded a total of 10006 unique indicators
         INFO     [mvt] Checking Android device over debug bridge
         WARNING  [mvt.android.modules.adb.getprop] This phone has not received security updates in the last six months
         INFO     [mvt.android.modules.adb.chrome_history] Running module ChromeHistory...
         CRITICAL [mvt.android.modules.adb.chrome_history] No device found. Make sure it is connected and unlocked.
        `
