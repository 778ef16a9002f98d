package picker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Stage names the point in the picker flow a debug entry was taken at.
type Stage string

const (
	StageRawSelection   Stage = "raw-selection"
	StagePostConversion Stage = "post-conversion"
	StagePassThrough    Stage = "pass-through"
)

type DebugEntry struct {
	Time    time.Time
	Stage   Stage
	Message string
}

// DebugLog is the append-only diagnostics panel for field troubleshooting.
// A nil *DebugLog discards entries.
type DebugLog struct {
	mu      sync.Mutex
	entries []DebugEntry
	logger  *slog.Logger
	now     func() time.Time
}

func NewDebugLog(logger *slog.Logger) *DebugLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugLog{logger: logger, now: time.Now}
}

func (d *DebugLog) Add(stage Stage, format string, args ...any) {
	if d == nil {
		return
	}
	e := DebugEntry{Time: d.now(), Stage: stage, Message: fmt.Sprintf(format, args...)}

	d.mu.Lock()
	d.entries = append(d.entries, e)
	d.mu.Unlock()

	d.logger.Debug("picker", "stage", string(stage), "message", e.Message)
}

// Entries returns a copy of everything recorded so far, oldest first.
func (d *DebugLog) Entries() []DebugEntry {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DebugEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// ByStage filters Entries to a single stage.
func (d *DebugLog) ByStage(stage Stage) []DebugEntry {
	var out []DebugEntry
	for _, e := range d.Entries() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Reset empties the panel. Long-running callers use it between batches.
func (d *DebugLog) Reset() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.entries = nil
	d.mu.Unlock()
}
