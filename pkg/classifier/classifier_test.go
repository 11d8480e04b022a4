/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: classifier_test.go
Description: Tests for catalog-driven classification.
*/

package classifier

import (
	"testing"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/catalog"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func newCatalog(rows ...catalog.Pattern) *catalog.Catalog {
	return &catalog.Catalog{Source: "test", Patterns: rows}
}

func TestClassifyADBEnabled(t *testing.T) {
	def, err := catalog.Default()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	c := New(def, logger)
	assert.Empty(t, c.Skipped())

	text := logparse.Normalize("INFO [mvt] start\nWARNING [mvt.android.modules.adb.settings] ADB is enabled on this device")
	findings, err := c.Classify(text)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, catalog.CategorySystemSecurity, findings[0].Category)
	assert.Equal(t, "ADB is enabled", findings[0].OriginalMessage)
}

func TestClassifySELinuxRow(t *testing.T) {
	cat := newCatalog(catalog.Pattern{
		Pattern:  `SELinux status is \"permissive\"`,
		Category: "Segurança do Sistema",
		Message:  "ative o modo enforcing",
	})

	findings, err := Classify(`WARNING[getprop] SELinux status is "permissive"`, cat, nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "Segurança do Sistema", findings[0].Category)
	assert.Equal(t, `SELinux status is "permissive"`, findings[0].OriginalMessage)
}

func TestClassifyEveryOccurrenceInCatalogOrder(t *testing.T) {
	cat := newCatalog(
		catalog.Pattern{Pattern: "root binary", Category: "B", Message: "b"},
		catalog.Pattern{Pattern: "adb is enabled", Category: "A", Message: "a", ErrorCode: "PARSER_ERROR"},
	)
	text := "WARNING[x] ADB IS ENABLED\nWARNING[y] Found root binary su\nWARNING[z] adb is enabled again"

	findings, err := Classify(text, cat, nil)
	require.NoError(t, err)
	require.Len(t, findings, 3)
	assert.Equal(t, "B", findings[0].Category)
	assert.Equal(t, "A", findings[1].Category)
	assert.Equal(t, "ADB IS ENABLED", findings[1].OriginalMessage)
	assert.Equal(t, "PARSER_ERROR", findings[1].Code)
	assert.Equal(t, "adb is enabled", findings[2].OriginalMessage)
}

func TestClassifyMultilineAnchors(t *testing.T) {
	cat := newCatalog(catalog.Pattern{Pattern: `^WARNING\[[^\]]*\] (.+)$`, Category: "W", Message: "w"})

	findings, err := Classify("INFO[a] x\nWARNING[b] first\nWARNING[c] second", cat, nil)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "WARNING[b] first", findings[0].OriginalMessage)
}

func TestClassifySkipsInvalidRegex(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cat := newCatalog(
		catalog.Pattern{Pattern: "(unbalanced", Category: "bad", Message: "bad"},
		catalog.Pattern{Pattern: "Found root binary", Category: "good", Message: "good"},
	)

	c := New(cat, logger)
	assert.Equal(t, 1, c.Len())
	require.Len(t, c.Skipped(), 1)
	assert.ErrorIs(t, c.Skipped()[0].Err, apperr.ErrInvalidRegex)
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "INVALID_REGEX_PATTERN", hook.LastEntry().Data["code"])

	findings, err := c.Classify("WARNING[r] Found root binary")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "good", findings[0].Category)
}

func TestClassifyLiteralRow(t *testing.T) {
	cat := newCatalog(catalog.Pattern{Pattern: "a.b (x)", IsRegex: boolPtr(false), Category: "L", Message: "l"})

	_, err := Classify("aXb (x)", cat, nil)
	assert.ErrorIs(t, err, apperr.ErrNoPatternMatch)

	findings, err := Classify("INFO[l] A.B (X)", cat, nil)
	require.NoError(t, err)
	assert.Equal(t, "A.B (X)", findings[0].OriginalMessage)
}

func TestClassifyWhenCondition(t *testing.T) {
	cat := newCatalog(catalog.Pattern{
		Pattern:  `[^\n]*stalkerware[^\n]*`,
		Category: "Stalking",
		Message:  "s",
		When:     "not (line contains 'STIX2')",
	})
	text := "INFO[ioc] Parsing STIX2 indicators file at path /x/generated_stalkerware.stix2\nWARNING[apps] Found stalkerware package com.spy"

	findings, err := Classify(text, cat, nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "WARNING[apps] Found stalkerware package com.spy", findings[0].OriginalMessage)
}

func TestClassifyBadWhenIsSkipped(t *testing.T) {
	cat := newCatalog(
		catalog.Pattern{Pattern: "x", Category: "c", Message: "m", When: "line +"},
		catalog.Pattern{Pattern: "x", Category: "c", Message: "m", When: "len(line)"},
	)
	c := New(cat, nil)
	assert.Zero(t, c.Len())
	assert.Len(t, c.Skipped(), 2)
}

func TestClassifyNoMatch(t *testing.T) {
	def, err := catalog.Default()
	require.NoError(t, err)

	for _, text := range []string{"", "INFO[mvt] Checking Android device over debug bridge"} {
		_, err := Classify(text, def, nil)
		assert.ErrorIs(t, err, apperr.ErrNoPatternMatch)
	}
}

func TestClassifyZeroLengthMatches(t *testing.T) {
	cat := newCatalog(catalog.Pattern{Pattern: "z*", Category: "c", Message: "m"})

	_, err := Classify("abc", cat, nil)
	assert.ErrorIs(t, err, apperr.ErrNoPatternMatch)
}
