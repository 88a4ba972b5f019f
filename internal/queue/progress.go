// internal/queue/progress.go
package queue

import (
	"encoding/json"
	"sync"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

// ProgressTracker remembers the furthest progress seen for each run.
type ProgressTracker struct {
	mu   sync.RWMutex
	runs map[string]model.Progress

	// OnDone, if set, is called once when a run reports completion.
	OnDone func(model.Progress)
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{runs: map[string]model.Progress{}}
}

// Attach subscribes the tracker to progress events on q.
func (t *ProgressTracker) Attach(q Queue) error {
	return q.Subscribe(TopicCampaignProgress, func(body []byte) error {
		var p model.Progress
		if err := json.Unmarshal(body, &p); err != nil {
			// malformed events are not worth retrying
			return nil
		}
		t.Record(p)
		return nil
	})
}

// Record keeps p unless an event further along was already seen. Events may
// arrive out of order.
func (t *ProgressTracker) Record(p model.Progress) {
	if p.RunID == "" {
		return
	}
	t.mu.Lock()
	cur, ok := t.runs[p.RunID]
	if ok && (cur.Done || cur.Processed > p.Processed) && !p.Done {
		t.mu.Unlock()
		return
	}
	t.runs[p.RunID] = p
	finished := p.Done && !(ok && cur.Done)
	t.mu.Unlock()

	if finished && t.OnDone != nil {
		t.OnDone(p)
	}
}

func (t *ProgressTracker) Get(runID string) (model.Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.runs[runID]
	return p, ok
}
