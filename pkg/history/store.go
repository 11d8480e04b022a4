/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: Scan history. Every mvt run is recorded with its redacted arguments,
timing and parse result so clients can fetch past scans by id.
*/

package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/fvm/pkg/logparse"
)

// Record is one stored scan
type Record struct {
	ID        string                `json:"id"`
	Command   string                `json:"command"`
	Args      []string              `json:"args"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration"`
	Success   bool                  `json:"success"`
	ErrorCode string                `json:"error_code,omitempty"`
	Result    *logparse.ParseResult `json:"result,omitempty"`
}

// NewRecord creates a record with a fresh id
func NewRecord(command string, args []string, startedAt time.Time) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Command:   command,
		Args:      args,
		StartedAt: startedAt,
	}
}

// Store persists scan records
type Store interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns at most limit records, newest first
	List(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}
