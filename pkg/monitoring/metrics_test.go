/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_test.go
Description: Tests for the Prometheus collectors.
*/

package monitoring

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveParse(t *testing.T) {
	m := NewMetrics()
	var _ logparse.Observer = m

	result := logparse.Assemble(
		logparse.Extract("INFO[a] x\nCRITICAL[b] y\nbanner"),
		[]logparse.Finding{{Category: "Possível Invasão"}, {Category: "Possível Invasão"}},
	)
	m.ObserveParse(time.Millisecond, &result, nil)
	m.ObserveParse(time.Millisecond, nil, apperr.New(apperr.DeviceNotFound, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.parses.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parses.WithLabelValues("DEVICE_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("NONE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("INFO")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.findings.WithLabelValues("Possível Invasão")))
}

func TestObserveCommandAndRequest(t *testing.T) {
	m := NewMetrics()
	m.ObserveCommand("check-adb", time.Second, nil)
	m.ObserveCommand("check-adb", time.Second, errors.New("unknown"))
	m.ObserveRequest("POST /api/check-adb", 200, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("check-adb", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("check-adb", "INTERNAL_SERVER_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST /api/check-adb", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveCommand("download-iocs", time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fvm_commands_total{outcome="ok",subcommand="download-iocs"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
