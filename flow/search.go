// Package flow drives the recommender page: resolve free text to one
// canonical item, then fetch recommendations for the same text. Two-step,
// explicit trigger (no live search), and last trigger wins: a slower,
// earlier search can never overwrite a later one.
package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/SanAntonik/MRS/client"
	m "github.com/SanAntonik/MRS/models"
	"github.com/SanAntonik/MRS/notify"
)

// Phase of the search flow.
type Phase string

const (
	Idle      Phase = "idle"
	Searching Phase = "searching"
	Resolved  Phase = "resolved"
	Failed    Phase = "failed"
)

// Searcher is the slice of the API facade the flow needs.
type Searcher interface {
	FindItemByTitle(ctx context.Context, inputTitle string) (m.Item, error)
	Recommend(ctx context.Context, inputTitle string) (m.ItemCollection, error)
}

// Snapshot is the committed view state: the query it belongs to, the
// closest match, and the recommended collection.
type Snapshot struct {
	Phase           Phase
	Query           string
	Match           m.Item
	Recommendations m.ItemCollection
	ErrorDetail     string
}

// Flow holds the recommender view state. Safe for concurrent use; stale
// completions are discarded by generation, so overlapping searches settle
// to the latest trigger regardless of completion order.
type Flow struct {
	svc      Searcher
	notifier notify.Notifier

	mu    sync.Mutex
	gen   uint64
	state Snapshot
}

func New(svc Searcher, notifier notify.Notifier) *Flow {
	return &Flow{svc: svc, notifier: notifier, state: Snapshot{Phase: Idle}}
}

// Search runs one resolve-then-recommend pass for text and returns the
// view state afterwards. There is no hard cancellation of an overtaken
// search; its results are simply ignored.
func (f *Flow) Search(ctx context.Context, text string) Snapshot {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.state = Snapshot{Phase: Searching, Query: text}
	f.mu.Unlock()

	match, err := f.svc.FindItemByTitle(ctx, text)
	if err != nil {
		// Step 2 is never attempted when the resolve fails.
		f.fail(gen, text, err)
		return f.State()
	}

	// Deliberate remote-contract quirk: recommendations are keyed by the
	// raw query text, not the resolved item's id. The match is shown as a
	// "closest match" confirmation only.
	recs, err := f.svc.Recommend(ctx, text)
	if err != nil {
		f.fail(gen, text, err)
		return f.State()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return f.state // overtaken by a newer search
	}
	f.state = Snapshot{
		Phase:           Resolved,
		Query:           text,
		Match:           match,
		Recommendations: recs,
	}
	return f.state
}

func (f *Flow) fail(gen uint64, text string, err error) {
	detail := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Detail.String()
	}

	f.mu.Lock()
	stale := gen != f.gen
	if !stale {
		f.state = Snapshot{Phase: Failed, Query: text, ErrorDetail: detail}
	}
	f.mu.Unlock()

	if !stale {
		f.notifier.Notify("Something went wrong.", detail, notify.Error)
	}
}

// State returns the current committed snapshot.
func (f *Flow) State() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset returns the flow to Idle, dropping any in-flight search's right to
// commit.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = Snapshot{Phase: Idle}
}
