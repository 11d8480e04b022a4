/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store_test.go
Description: Tests for the in-memory store and, when a database is available, the
PostgreSQL store.
*/

package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(cmd string) *Record {
	r := NewRecord(cmd, []string{"check-adb", "--serial", "abc"}, time.Now().UTC().Truncate(time.Millisecond))
	result := logparse.Assemble(logparse.Extract("INFO[a] x"), nil)
	r.Result = &result
	r.Success = result.Success
	r.Duration = 1500 * time.Millisecond
	return r
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	first := sampleRecord("check-adb")
	second := sampleRecord("check-bugreport")
	second.StartedAt = first.StartedAt.Add(time.Second)
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Command, got.Command)
	assert.Equal(t, first.Args, got.Args)
	assert.Equal(t, first.Duration, got.Duration)
	require.NotNil(t, got.Result)
	assert.Equal(t, first.Result.Logs, got.Result.Logs)

	list, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = s.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrScanNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(0)
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	var ids []string
	for i := 0; i < 3; i++ {
		r := sampleRecord("check-adb")
		ids = append(ids, r.ID)
		require.NoError(t, s.Save(ctx, r))
	}

	_, err := s.Get(ctx, ids[0])
	assert.ErrorIs(t, err, apperr.ErrScanNotFound)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FVM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FVM_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}
