package watch

import (
	"sync"
	"time"
)

// exportCoalescer folds bursts of filesystem events on a DataStage export
// into single re-migration triggers. DataStage and most editors write a
// saved export in several chunks, each raising its own event; only the last
// event of a quiet period may start a run, or the pipeline would race a
// half-written file.
//
// Triggers are delivered on C, so the watcher consumes them in the same
// select loop that drains fsnotify events.
type exportCoalescer struct {
	quiet  time.Duration
	events chan string

	// C delivers the path of the last event once the quiet period passed.
	C chan string

	done     chan struct{}
	stopOnce sync.Once
}

// newExportCoalescer starts a coalescer with the given quiet period.
func newExportCoalescer(quiet time.Duration) *exportCoalescer {
	c := &exportCoalescer{
		quiet:  quiet,
		events: make(chan string, 16),
		C:      make(chan string, 1),
		done:   make(chan struct{}),
	}

	go c.loop()

	return c
}

// Notify records an event for path. Never blocks: when the event buffer is
// full the burst is already pending, so dropping is safe.
func (c *exportCoalescer) Notify(path string) {
	select {
	case c.events <- path:
	case <-c.done:
	default:
	}
}

// Stop ends the coalescer; no triggers fire afterwards.
func (c *exportCoalescer) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *exportCoalescer) loop() {
	var (
		timer *time.Timer
		fireC <-chan time.Time
		last  string
	)

	for {
		select {
		case path := <-c.events:
			last = path

			if timer == nil {
				timer = time.NewTimer(c.quiet)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}

				timer.Reset(c.quiet)
			}

			fireC = timer.C

		case <-fireC:
			fireC = nil

			// A pending, unconsumed trigger is superseded by this one.
			select {
			case <-c.C:
			default:
			}

			c.C <- last

		case <-c.done:
			if timer != nil {
				timer.Stop()
			}

			return
		}
	}
}
