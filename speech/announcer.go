package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/edaniels/golog"
	goutils "go.viam.com/utils"
)

// defaultQueueCapacity bounds the announcement queue. The producer never
// blocks: batches beyond this backlog are dropped with a warning.
const defaultQueueCapacity = 64

// A SightingKind tags which identifier space a sighting belongs to, so the
// notification path can never confuse a marker identifier with a target
// identifier that happens to share its numeric value.
type SightingKind int

const (
	// SightingMarker is a fiducial marker sighting.
	SightingMarker SightingKind = iota
	// SightingTarget is a physical object target sighting.
	SightingTarget
)

// A Sighting is one newly seen identifier to announce.
type Sighting struct {
	Kind SightingKind
	// MarkerID is the decoded marker identifier when Kind is SightingMarker.
	MarkerID int
	// Label is the human readable target label when Kind is SightingTarget.
	Label string
}

// Phrase returns the spoken announcement for the sighting.
func (s Sighting) Phrase() string {
	if s.Kind == SightingMarker {
		return fmt.Sprintf("Detected ArUco Marker: %d", s.MarkerID)
	}
	return fmt.Sprintf("Detected Target: %s", s.Label)
}

// An Announcer consumes batches of sightings on a dedicated background worker
// and speaks them one at a time, in order within each batch. Enqueueing is
// always non-blocking.
type Announcer struct {
	engine                  Engine
	logger                  golog.Logger
	queue                   chan []Sighting
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewAnnouncer starts the background worker speaking through the given engine.
func NewAnnouncer(engine Engine, logger golog.Logger) *Announcer {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	a := &Announcer{
		engine:     engine,
		logger:     logger,
		queue:      make(chan []Sighting, defaultQueueCapacity),
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}
	a.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer a.activeBackgroundWorkers.Done()
		a.processQueue(cancelCtx)
	})
	return a
}

// Announce enqueues one batch of sightings and returns immediately. If the
// worker has fallen too far behind, the batch is dropped and logged; the
// caller is never delayed.
func (a *Announcer) Announce(batch []Sighting) {
	if len(batch) == 0 {
		return
	}
	select {
	case a.queue <- batch:
	default:
		a.logger.Warnw("announcement queue full; dropping batch", "batch_size", len(batch))
	}
}

func (a *Announcer) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-a.queue:
			for _, s := range batch {
				if ctx.Err() != nil {
					return
				}
				// playback runs on a background context so that shutdown never
				// cuts an utterance off mid-phrase; the loop exits at the next
				// utterance boundary instead
				if err := a.engine.Say(context.Background(), s.Phrase()); err != nil {
					a.logger.Errorw("failed to announce sighting", "phrase", s.Phrase(), "error", err)
				}
			}
		}
	}
}

// Close stops the worker and waits for it to exit. An utterance already in
// flight is allowed to finish; queued batches not yet started are discarded.
func (a *Announcer) Close() {
	a.cancelFunc()
	a.activeBackgroundWorkers.Wait()
}
