/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: service_test.go
Description: Tests for the mvt-android service against a scripted command runner.
*/

package mvt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/catalog"
	"github.com/kleascm/fvm/pkg/classifier"
	"github.com/kleascm/fvm/pkg/execution"
	"github.com/kleascm/fvm/pkg/history"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{
	Binary:        "mvt-android",
	ADBBinary:     "adb",
	OutputFolder:  "/tmp/fvm",
	IndicatorsDir: "/home/user/.local/share/mvt/indicators",
	Timeout:       time.Minute,
}

type staticSecrets map[string]string

func (s staticSecrets) Get(key string) (string, error) {
	return s[key], nil
}

type countingObserver struct {
	calls map[string]int
}

func (o *countingObserver) ObserveCommand(sub string, _ time.Duration, _ error) {
	o.calls[sub]++
}

// savedMessagesStore remembers how many findings each record had when saved
type savedMessagesStore struct {
	*history.MemoryStore
	saved []int
}

func (s *savedMessagesStore) Save(ctx context.Context, r *history.Record) error {
	n := 0
	if r.Result != nil {
		n = len(r.Result.Messages)
	}
	s.saved = append(s.saved, n)
	return s.MemoryStore.Save(ctx, r)
}

func newTestService(t *testing.T, runner execution.CommandRunner, opts ...Option) (*Service, *history.MemoryStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cat, err := catalog.Default()
	require.NoError(t, err)

	store := history.NewMemoryStore(10)
	parser := logparse.NewParser(classifier.New(cat, logger), logger)
	opts = append([]Option{WithHistory(store)}, opts...)
	return NewService(testSettings, runner, parser, logger, opts...), store
}

func TestCheckADBParsesOutput(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android check-adb", &execution.Output{
		Stderr: "INFO [mvt.android.cmd_check_adb] Checking device\n" +
			"WARNING [mvt.android.modules.adb.getprop] SELinux status is \"permissive\"\n",
	}, nil)
	observer := &countingObserver{calls: map[string]int{}}
	svc, store := newTestService(t, runner, WithCommandObserver(observer))

	scan, err := svc.CheckADB(context.Background(), CheckADBOptions{Serial: "R58M", Fast: true})
	require.NoError(t, err)
	require.NotEmpty(t, scan.ID)

	assert.Equal(t, []string{"check-adb", "--serial", "R58M", "--output", "/tmp/fvm", "--fast"}, runner.Last().Args)
	assert.True(t, scan.Result.Success)
	require.Len(t, scan.Result.Logs, 2)
	assert.Equal(t, logparse.SeverityWarning, scan.Result.Logs[1].Status)
	require.NotEmpty(t, scan.Result.Messages)
	assert.Equal(t, catalog.CategorySystemSecurity, scan.Result.Messages[0].Category)
	assert.Equal(t, 1, observer.calls[SubCheckADB])

	rec, err := store.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Equal(t, SubCheckADB, rec.Command)
	assert.True(t, rec.Success)
	assert.Empty(t, rec.ErrorCode)
}

func TestRequiredPathsAreValidated(t *testing.T) {
	runner := execution.NewFakeRunner()
	svc, _ := newTestService(t, runner)
	ctx := context.Background()

	_, err := svc.CheckAndroidQF(ctx, CheckAndroidQFOptions{})
	assert.True(t, errors.Is(err, apperr.New(apperr.MissingParameter, nil)))

	_, err = svc.CheckBackup(ctx, CheckBackupOptions{})
	assert.True(t, errors.Is(err, apperr.New(apperr.MissingParameter, nil)))

	_, err = svc.CheckBugreport(ctx, CheckBugreportOptions{Path: "  "})
	assert.True(t, errors.Is(err, apperr.New(apperr.MissingParameter, nil)))

	assert.Empty(t, runner.Calls)
}

func TestFailedRunReportsCondition(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android check-adb",
		&execution.Output{Stderr: "adb: error: no devices/emulators found", ExitCode: 1},
		apperr.New(apperr.CommandExecutionFailed, nil))
	svc, store := newTestService(t, runner)

	_, err := svc.CheckADB(context.Background(), CheckADBOptions{})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.DeviceNotFound, appErr.Code)

	records, err := store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, string(apperr.DeviceNotFound), records[0].ErrorCode)
}

func TestFailedRunKeepsCommandError(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android check-bugreport",
		&execution.Output{Stderr: "Traceback: boom", ExitCode: 2},
		apperr.New(apperr.CommandExecutionFailed, nil))
	svc, _ := newTestService(t, runner)

	_, err := svc.CheckBugreport(context.Background(), CheckBugreportOptions{Path: "/data/bugreport.zip"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CommandExecutionFailed, appErr.Code)
	assert.Equal(t, []string{"check-bugreport", "/data/bugreport.zip", "--output", "/tmp/fvm"}, runner.Last().Args)
}

func TestUnparseableOutput(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android check-androidqf", &execution.Output{Stdout: "Usage: mvt-android"}, nil)
	svc, _ := newTestService(t, runner)

	_, err := svc.CheckAndroidQF(context.Background(), CheckAndroidQFOptions{Path: "/data/qf"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.UnparseableOutput, appErr.Code)
	assert.Equal(t, "Usage: mvt-android", appErr.Response().Output)
}

func TestDownloadIOCs(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android download-iocs",
		&execution.Output{Stderr: "INFO [mvt] Downloaded indicators to ~/.local/share/mvt/indicators"}, nil)
	store := &savedMessagesStore{MemoryStore: history.NewMemoryStore(10)}
	svc, _ := newTestService(t, runner, WithHistory(store))

	scan, err := svc.DownloadIOCs(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, scan.Result.Messages)
	last := scan.Result.Messages[len(scan.Result.Messages)-1]
	assert.Equal(t, catalog.CategoryIOCUpdate, last.Category)
	assert.Equal(t, "Atualização concluída com sucesso!", last.Message)

	rec, err := store.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Result)
	assert.Equal(t, scan.Result.Messages, rec.Result.Messages)
	assert.Equal(t, []int{len(scan.Result.Messages)}, store.saved)
}

func TestDownloadIOCsFailure(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android download-iocs",
		&execution.Output{Stderr: "network unreachable", ExitCode: 1},
		apperr.New(apperr.CommandExecutionFailed, nil))
	svc, _ := newTestService(t, runner)

	_, err := svc.DownloadIOCs(context.Background())
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.IOCUpdateFailed, appErr.Code)
	assert.Equal(t, "Não foi possível atualizar IOCs.", appErr.ClientMessage())
}

func TestDownloadAPKsVirusTotal(t *testing.T) {
	output := &execution.Output{Stderr: "INFO [mvt] Downloading 3 packages"}

	runner := execution.NewFakeRunner().On("mvt-android download-apks", output, nil)
	svc, _ := newTestService(t, runner)
	_, err := svc.DownloadAPKs(context.Background(), DownloadAPKsOptions{VirusTotal: true})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ConfigNotFound, appErr.Code)
	assert.Empty(t, runner.Calls)

	runner = execution.NewFakeRunner().On("mvt-android download-apks", output, nil)
	svc, _ = newTestService(t, runner, WithSecrets(staticSecrets{VirusTotalKey: "vt-123"}))
	_, err = svc.DownloadAPKs(context.Background(), DownloadAPKsOptions{VirusTotal: true, AllAPKs: true})
	require.NoError(t, err)
	cmd := runner.Last()
	assert.Equal(t, []string{"MVT_VT_API_KEY=vt-123"}, cmd.Env)
	assert.Equal(t, []string{"download-apks", "--all-apks", "--virustotal", "--output", "/tmp/fvm"}, cmd.Args)
}

func TestCheckBackupSequence(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android check-backup",
		&execution.Output{Stderr: "INFO [mvt] Parsing backup"}, nil)
	svc, store := newTestService(t, runner)

	scan, err := svc.CheckBackup(context.Background(), CheckBackupOptions{Path: "/tmp/backup.ab", BackupPassword: "hunter2"})
	require.NoError(t, err)

	require.Len(t, runner.Calls, 3)
	assert.Equal(t, []string{"backup", "-nocompress", "com.android.providers.telephony", "-f", "/tmp/backup.ab"}, runner.Calls[0].Args)
	assert.Equal(t, []string{"kill-server"}, runner.Calls[1].Args)
	assert.Equal(t, []string{"check-backup", "/tmp/backup.ab", "--backup-password", "hunter2"}, runner.Calls[2].Args)
	assert.NotContains(t, runner.Calls[2].String(), "hunter2")

	rec, err := store.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/backup.ab", "--backup-password", redacted}, rec.Args)
}

func TestCheckBackupStopsOnADBFailure(t *testing.T) {
	runner := execution.NewFakeRunner().On("adb backup",
		&execution.Output{Stderr: "adb: no devices/emulators found"},
		apperr.New(apperr.CommandExecutionFailed, nil))
	svc, _ := newTestService(t, runner)

	_, err := svc.CheckBackup(context.Background(), CheckBackupOptions{Path: "/tmp/backup.ab"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.DeviceNotFound, appErr.Code)
	assert.Len(t, runner.Calls, 1)
}

func TestCheckIOCsDefaultsFolder(t *testing.T) {
	runner := execution.NewFakeRunner().On("mvt-android check-iocs", &execution.Output{Stderr: "INFO [mvt] Loaded 12 indicators"}, nil)
	svc, _ := newTestService(t, runner)

	_, err := svc.CheckIOCs(context.Background(), CheckIOCsOptions{Module: "packages"})
	require.NoError(t, err)
	assert.Equal(t, []string{"check-iocs", testSettings.IndicatorsDir, "--module", "packages"}, runner.Last().Args)
}

func TestOptionArgs(t *testing.T) {
	qf := CheckAndroidQFOptions{
		Path:           "/data/qf",
		IOCFiles:       []string{"a.stix2", "", "b.stix2"},
		Hashes:         true,
		NonInteractive: true,
		Verbose:        true,
	}
	assert.Equal(t, []string{"/data/qf", "-i", "a.stix2", "-i", "b.stix2", "--hashes", "--non-interactive", "--verbose"}, qf.Args())

	adb := CheckADBOptions{ListModules: true, Module: "chrome_history", BackupPassword: "pw"}
	assert.Equal(t, []string{"--list-modules", "--module", "chrome_history", "--backup-password", "pw"}, adb.Args())
	assert.Equal(t, []string{"--list-modules", "--module", "chrome_history", "--backup-password", redacted}, Redact(adb.Args()))

	apks := DownloadAPKsOptions{Serial: "emulator-5554", FromFile: "packages.json"}
	assert.Equal(t, []string{"--serial", "emulator-5554", "--from-file", "packages.json"}, apks.Args())
}
