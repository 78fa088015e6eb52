// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package stress drives an event hub from many goroutines at once and
// checks that the registry is still consistent afterwards.
package stress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/event"
	"github.com/emitix/emitix/pkg/output"
)

// ErrInconsistent is returned when the hub's observable state does not
// match what the workload did.
var ErrInconsistent = errors.New("registry inconsistent")

// Options sizes the workload.
type Options struct {
	// Workers is the number of goroutines adding and removing listeners.
	Workers int
	// Emitters is the number of goroutines emitting while writers run.
	Emitters int
	// Iterations is the number of add/remove cycles per writer.
	Iterations int
	// Kinds is the number of distinct kinds each writer touches per cycle.
	Kinds int
	// Timeout aborts the workload; zero means no limit.
	Timeout time.Duration
}

// OptionsFromConfig converts the stress section of the configuration.
func OptionsFromConfig(cfg config.StressConfig) Options {
	return Options{
		Workers:    cfg.Workers,
		Emitters:   cfg.Emitters,
		Iterations: cfg.Iterations,
		Kinds:      cfg.Kinds,
		Timeout:    cfg.Timeout,
	}
}

func (o Options) validate() error {
	if o.Workers < 1 || o.Iterations < 1 || o.Kinds < 1 || o.Emitters < 0 {
		return fmt.Errorf("invalid stress options: workers=%d emitters=%d iterations=%d kinds=%d",
			o.Workers, o.Emitters, o.Iterations, o.Kinds)
	}
	return nil
}

// Result counts what the workload did.
type Result struct {
	Added      int64         `json:"added"`
	Removed    int64         `json:"removed"`
	Emits      int64         `json:"emits"`
	Deliveries int64         `json:"deliveries"`
	Duration   time.Duration `json:"duration"`
}

// Run executes the workload on a fresh hub. Progress is reported on stream
// when it is not nil.
func Run(ctx context.Context, opts Options, stream *output.OutputEventStream, logger zerolog.Logger) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if stream == nil {
		stream = output.NewOutputEventStream()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	w := &workload{
		opts:   opts,
		hub:    event.NewHub[int](event.WithLogger(logger)),
		logger: logger.With().Str("component", "stress").Logger(),
	}

	started := time.Now()
	w.logger.Info().
		Int("workers", opts.Workers).
		Int("emitters", opts.Emitters).
		Int("iterations", opts.Iterations).
		Int("kinds", opts.Kinds).
		Msg("stress workload started")

	runErr := w.run(ctx)
	res := &Result{
		Added:      w.added.Load(),
		Removed:    w.removed.Load(),
		Emits:      w.emits.Load(),
		Deliveries: w.deliveries.Load(),
		Duration:   time.Since(started),
	}
	_ = stream.Step("concurrent add/remove/emit", map[string]any{
		"ok":      runErr == nil,
		"added":   res.Added,
		"removed": res.Removed,
		"emits":   res.Emits,
	})
	if runErr != nil {
		_ = stream.Summary("stress", map[string]any{"ok": false, "error": runErr.Error()})
		return res, runErr
	}

	verifyErr := w.verify(res)
	_ = stream.Step("verify registry", map[string]any{"ok": verifyErr == nil})
	_ = stream.Summary("stress", map[string]any{
		"ok":          verifyErr == nil,
		"deliveries":  res.Deliveries,
		"duration_ms": res.Duration.Milliseconds(),
	})

	w.logger.Info().
		Int64("added", res.Added).
		Int64("emits", res.Emits).
		Dur("duration", res.Duration).
		Msg("stress workload finished")

	return res, verifyErr
}

type workload struct {
	opts   Options
	hub    *event.Hub[int]
	logger zerolog.Logger

	added      atomic.Int64
	removed    atomic.Int64
	emits      atomic.Int64
	deliveries atomic.Int64
}

func writerKind(w, k int) string { return fmt.Sprintf("writer-%d-%d", w, k) }
func emitterKind(e int) string   { return fmt.Sprintf("emitter-%d", e) }

func (w *workload) run(ctx context.Context) error {
	for e := range w.opts.Emitters {
		_, err := w.hub.AddListener(emitterKind(e), event.Infallible(func(int) {
			w.deliveries.Add(1)
		}))
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	var writers sync.WaitGroup
	for i := range w.opts.Workers {
		writers.Add(1)
		g.Go(func() error {
			defer writers.Done()
			return w.writer(gctx, i)
		})
	}
	for e := range w.opts.Emitters {
		g.Go(func() error {
			return w.emitter(gctx, e, stop)
		})
	}

	go func() {
		writers.Wait()
		close(stop)
	}()

	return g.Wait()
}

// writer repeatedly registers one listener per kind and removes them
// again, checking the registry after each removal.
func (w *workload) writer(ctx context.Context, idx int) error {
	ids := make([]event.ListenerID, w.opts.Kinds)
	noop := event.Infallible(func(int) {})

	for range w.opts.Iterations {
		if err := ctx.Err(); err != nil {
			return err
		}

		for k := range w.opts.Kinds {
			id, err := w.hub.AddListener(writerKind(idx, k), noop)
			if err != nil {
				return err
			}
			ids[k] = id
			w.added.Add(1)
		}

		for k, id := range ids {
			removed, err := w.hub.RemoveListener(id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: listener %s on %s already gone", ErrInconsistent, id, writerKind(idx, k))
			}
			w.removed.Add(1)

			has, err := w.hub.HasListeners(writerKind(idx, k))
			if err != nil {
				return err
			}
			if has {
				return fmt.Errorf("%w: %s still has listeners", ErrInconsistent, writerKind(idx, k))
			}
		}
	}
	return nil
}

// emitter emits on its own kind until stop is closed. Every emit must reach
// exactly the one listener registered for that kind.
func (w *workload) emitter(ctx context.Context, idx int, stop <-chan struct{}) error {
	emitter := w.hub.NewEmitter(emitterKind(idx))

	for n := 0; ; n++ {
		if err := emitter.Emit(n); err != nil {
			return err
		}
		w.emits.Add(1)

		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (w *workload) verify(res *Result) error {
	if err := w.hub.Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	if res.Added != res.Removed {
		return fmt.Errorf("%w: added %d, removed %d", ErrInconsistent, res.Added, res.Removed)
	}
	if res.Deliveries != res.Emits {
		return fmt.Errorf("%w: %d emits, %d deliveries", ErrInconsistent, res.Emits, res.Deliveries)
	}

	kinds, err := w.hub.ListEventKinds()
	if err != nil {
		return err
	}
	want := make([]string, 0, w.opts.Emitters)
	for e := range w.opts.Emitters {
		want = append(want, emitterKind(e))
	}
	slices.Sort(want)
	if !slices.Equal(kinds, want) {
		return fmt.Errorf("%w: kinds left [%s], want [%s]", ErrInconsistent, strings.Join(kinds, ","), strings.Join(want, ","))
	}
	return nil
}
