package clean

import (
	"maps"
	"sync"
	"time"

	"github.com/sells-group/datacleaner/internal/model"
)

// AuditLog is an append-only record of the operations applied during a run.
// Entries are stamped on append and never change afterwards.
type AuditLog struct {
	mu      sync.Mutex
	now     func() time.Time
	entries []model.AuditEntry
}

// NewAuditLog creates an empty log. A nil clock uses time.Now.
func NewAuditLog(now func() time.Time) *AuditLog {
	if now == nil {
		now = time.Now
	}
	return &AuditLog{now: now}
}

// Append stamps e and records it. Timestamps never go backwards, so the log
// stays in application order even if the clock does.
func (l *AuditLog) Append(e model.AuditEntry) model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	if n := len(l.entries); n > 0 && ts.Before(l.entries[n-1].Timestamp) {
		ts = l.entries[n-1].Timestamp
	}
	e.Timestamp = ts
	e = copyEntry(e)
	l.entries = append(l.entries, e)
	return copyEntry(e)
}

// Entries returns a copy of the recorded entries in order.
func (l *AuditLog) Entries() []model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.AuditEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = copyEntry(e)
	}
	return out
}

// Len returns the number of entries.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func copyEntry(e model.AuditEntry) model.AuditEntry {
	if e.Details != nil {
		e.Details = maps.Clone(e.Details)
	}
	if e.RowsAffected != nil {
		n := *e.RowsAffected
		e.RowsAffected = &n
	}
	return e
}

// Operation names recorded in the audit log.
const (
	OpMissingNone   = "missing_values.none"
	OpMissingFill   = "missing_values.fill"
	OpMissingDrop   = "missing_values.drop"
	OpCoerceInteger = "coerce.integer"
	OpOutlierSkip   = "outliers.skip"
	OpOutlierCap    = "outliers.cap"
	OpOutlierRemove = "outliers.remove"
	OpDuplicates    = "duplicates.remove"
)

func entry(op, column string, rows int, details map[string]any) model.AuditEntry {
	return model.AuditEntry{
		Operation:    op,
		Column:       column,
		Details:      details,
		RowsAffected: &rows,
	}
}
