// Package sessionlog records finished phases into the local history store.
package sessionlog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yabswannalearn/OpenPomo/internal/model"
	"github.com/yabswannalearn/OpenPomo/internal/store"
)

const insertTimeout = 5 * time.Second

// Recorder logs completed phases. It satisfies the engine's notifier
// contract: inserts run off the calling goroutine and failures are
// swallowed after a stderr note.
type Recorder struct {
	store  *store.Store
	taskID string
	now    func() time.Time
}

// NewRecorder creates a recorder. taskID may be empty; it is attached to
// focus sessions only.
func NewRecorder(st *store.Store, taskID string) *Recorder {
	return &Recorder{store: st, taskID: taskID, now: time.Now}
}

// PhaseCompleted records the finished phase, best-effort.
func (r *Recorder) PhaseCompleted(mode model.Mode, durationSeconds int) {
	ended := r.now()
	session := model.Session{
		Mode:            mode,
		StartedAt:       ended.Add(-time.Duration(durationSeconds) * time.Second),
		EndedAt:         ended,
		DurationSeconds: durationSeconds,
		Completed:       true,
	}
	if mode == model.ModeFocus {
		session.TaskID = r.taskID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()
		if _, err := r.store.InsertSession(ctx, session); err != nil {
			fmt.Fprintf(os.Stderr, "failed to record session: %v\n", err)
		}
	}()
}
