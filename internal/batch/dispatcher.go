// Package batch bounds the number of network round trips issued against a
// remote object store by collecting small requests into batches.
package batch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxRequestsPerBatch is the batch ceiling used when the caller does
// not configure one.
const DefaultMaxRequestsPerBatch = 100

// Request is one remote-store operation.
type Request func(ctx context.Context) error

// Callback translates the outcome of a request. It may swallow an error
// (returning nil keeps the batch going) or replace it with a more
// descriptive one.
type Callback func(err error) error

type entry struct {
	run  Request
	done Callback
}

// Dispatcher accumulates pending requests and executes them in bounded-size
// batches. Requests within one batch are issued concurrently; the batch as a
// whole counts as one round trip.
//
// A Dispatcher is single-owner state for one logical finalize invocation. It
// is not safe for concurrent use; create a fresh instance per caller.
type Dispatcher struct {
	pending  []entry
	open     []entry
	max      int
	flushing bool
	flushes  int
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher with the given per-batch request limit.
func NewDispatcher(maxRequestsPerBatch int) *Dispatcher {
	if maxRequestsPerBatch <= 0 {
		maxRequestsPerBatch = DefaultMaxRequestsPerBatch
	}
	return &Dispatcher{
		max: maxRequestsPerBatch,
		log: slog.With("component", "batch"),
	}
}

// Queue appends a request to the pending set and flushes once the pending
// count reaches the per-batch limit. done may be nil.
func (d *Dispatcher) Queue(ctx context.Context, req Request, done Callback) error {
	d.pending = append(d.pending, entry{run: req, done: done})
	if len(d.pending) >= d.max {
		return d.flush(ctx)
	}
	return nil
}

// Flush executes any requests still pending below the batch trigger. Call it
// once after the final Queue so every request is sent.
func (d *Dispatcher) Flush(ctx context.Context) error {
	return d.flush(ctx)
}

// Flushes reports how many batches have been executed so far.
func (d *Dispatcher) Flushes() int {
	return d.flushes
}

func (d *Dispatcher) flush(ctx context.Context) error {
	if d.flushing || len(d.pending) == 0 {
		return nil
	}
	d.flushing = true
	defer func() { d.flushing = false }()

	for len(d.open) < d.max && len(d.pending) > 0 {
		d.open = append(d.open, d.pending[0])
		d.pending = d.pending[1:]
	}
	return d.execute(ctx)
}

// execute runs the open batch as one round trip. Every request in the batch
// is started; a request error (after its callback, if any) fails the batch.
func (d *Dispatcher) execute(ctx context.Context) error {
	if len(d.open) == 0 {
		return nil
	}
	open := d.open
	d.open = nil
	d.flushes++

	d.log.Debug("executing batch", "requests", len(open), "batch", d.flushes)

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range open {
		e := e
		g.Go(func() error {
			err := e.run(ctx)
			if e.done != nil {
				err = e.done(err)
			}
			return err
		})
	}
	return g.Wait()
}
