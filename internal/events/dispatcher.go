package events

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Handler reacts to a committed event.
type Handler func(event Event) error

// Dispatcher fans committed events out to the registered handlers.
// The events of one call are handled in commit order in their own goroutine;
// Stop waits for them to finish.
type Dispatcher struct {
	log        *zap.Logger
	mu         sync.RWMutex
	handlers   map[string][]Handler
	closerFunc []func() error
	wg         *sync.WaitGroup
	stopped    bool
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		log:      logger,
		handlers: make(map[string][]Handler),
		wg:       &sync.WaitGroup{},
	}
}

// SetHandler registers handler for eventType, or for every event with TypeAll.
func (d *Dispatcher) SetHandler(eventType string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// OnStop registers a function called when the dispatcher stops.
func (d *Dispatcher) OnStop(closer func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closerFunc = append(d.closerFunc, closer)
}

// Publish hands the events of one committed call to the handlers.
// Events published after Stop are dropped.
func (d *Dispatcher) Publish(events []Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn("dispatcher stopped, dropping events", zap.Int("count", len(events)))
		return
	}

	type job struct {
		event    Event
		handlers []Handler
	}
	jobs := make([]job, 0, len(events))
	for _, event := range events {
		handlers := append(append([]Handler{}, d.handlers[event.Type]...), d.handlers[TypeAll]...)
		if len(handlers) == 0 {
			d.log.Debug("no handler for the event: " + event.Type)
			continue
		}
		jobs = append(jobs, job{event, handlers})
	}
	if len(jobs) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		for _, j := range jobs {
			for _, handler := range j.handlers {
				if err := handler(j.event); err != nil {
					d.log.Error("error when handling the event: "+err.Error(), zap.String("type", j.event.Type), zap.String("txRef", j.event.TxRef))
				}
			}
		}
	}()
}

// Wait blocks until every published event was handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stop waits for the running handlers and calls the registered closers.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.log.Info("waiting for all the event handlers to finish...")
	d.wg.Wait()
	d.log.Info("event handlers finished")

	d.mu.RLock()
	defer d.mu.RUnlock()

	var allErr error
	for _, close := range d.closerFunc {
		if err := close(); err != nil {
			allErr = multierr.Append(allErr, err)
		}
	}
	return allErr
}
