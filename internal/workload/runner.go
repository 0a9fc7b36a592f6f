// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package workload

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/antimetal/containers/pkg/heaparray"
	"github.com/antimetal/containers/pkg/ringbuffer"
)

// Result summarizes one scenario run
type Result struct {
	Name       string
	Kind       Kind
	Operations int
	Duration   time.Duration
	// Evicted counts unread ring elements discarded by overwrite-oldest
	Evicted int
	// Drained counts ring elements handed out by DrainAll
	Drained int
	// Destructed counts elements torn down by the containers themselves
	Destructed int
	// Bytes is the total size of the element storage allocated
	Bytes uint64
}

type RunnerOptions struct {
	Logger logr.Logger
	// Registry receives per-scenario ring buffer metrics. Optional.
	Registry prometheus.Registerer
}

// Runner executes workload scenarios. Each scenario runs on its own goroutine
// and owns every container it builds, so no container is ever shared.
type Runner struct {
	logger   logr.Logger
	registry prometheus.Registerer
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Logger.GetSink() == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Runner{
		logger:   opts.Logger.WithName("workload-runner"),
		registry: opts.Registry,
	}, nil
}

// Run executes every scenario in cfg concurrently. Results are returned in
// scenario order. The first failing scenario cancels the others.
func (r *Runner) Run(ctx context.Context, cfg Config) ([]Result, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload config: %w", err)
	}

	results := make([]Result, len(cfg.Scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range cfg.Scenarios {
		g.Go(func() error {
			logger := r.logger.WithValues("scenario", s.Name, "kind", s.Kind)
			logger.V(1).Info("starting scenario", "capacity", s.Capacity, "operations", s.Operations)

			res, err := r.runScenario(ctx, logger, s, cfg.BatchSize)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", s.Name, err)
			}
			logger.Info("scenario finished", "duration", res.Duration)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runScenario(ctx context.Context, logger logr.Logger, s Scenario, batch int) (Result, error) {
	start := time.Now()
	var (
		res Result
		err error
	)
	switch s.Kind {
	case KindArray:
		res, err = runArray(ctx, s, batch)
	case KindRing:
		res, err = r.runRing(ctx, logger, s, batch)
	default:
		err = fmt.Errorf("unknown kind %q", s.Kind)
	}
	if err != nil {
		return Result{}, err
	}
	res.Name = s.Name
	res.Kind = s.Kind
	res.Operations = s.Operations
	res.Duration = time.Since(start)
	return res, nil
}

func checkpoint(ctx context.Context, i, batch int) error {
	if i%batch != 0 {
		return nil
	}
	return ctx.Err()
}

// runArray overwrites slots round-robin, reading each back through the
// checked accessor, then deep-copies the array and abandons a consuming
// iteration over the copy halfway through.
func runArray(ctx context.Context, s Scenario, batch int) (Result, error) {
	var res Result
	countDrops := heaparray.WithDropFunc(func(int) { res.Destructed++ })

	a := heaparray.New(0, s.Capacity, countDrops)
	defer a.Release()

	for i := 0; i < s.Operations; i++ {
		if err := checkpoint(ctx, i, batch); err != nil {
			return Result{}, err
		}
		idx := i % s.Capacity
		a.Set(idx, i)
		if v, ok := a.Get(idx); !ok || v != i {
			return Result{}, fmt.Errorf("slot %d holds %d after writing %d", idx, v, i)
		}
	}

	c := a.Clone()
	for _, p := range c.Pointers() {
		*p = -*p
	}
	for i, v := range a.All() {
		if c.At(i) != -v {
			return Result{}, fmt.Errorf("clone diverged at slot %d", i)
		}
	}

	it := c.IntoIter()
	for range s.Capacity / 2 {
		it.Next()
	}
	it.Close()
	a.Release()

	res.Bytes = 2 * uint64(s.Capacity) * uint64(unsafe.Sizeof(int(0)))
	return res, nil
}

// runRing writes sequential values into a ring buffer, draining it every
// DrainEvery writes, and checks that every write was either drained or evicted.
func (r *Runner) runRing(ctx context.Context, logger logr.Logger, s Scenario, batch int) (Result, error) {
	var res Result
	opts := []ringbuffer.Option[int]{
		ringbuffer.WithLogger[int](logger),
		ringbuffer.WithEvictCallback(func(int) { res.Evicted++ }),
		ringbuffer.WithArrayOptions(heaparray.WithDropFunc(func(int) { res.Destructed++ })),
	}
	if r.registry != nil {
		m, err := ringbuffer.NewMetrics(r.registry, s.Name)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, ringbuffer.WithMetrics[int](m))
	}

	rb := ringbuffer.Fill(-1, s.Capacity, opts...)
	defer rb.Release()

	last := -1
	drain := func() error {
		for _, v := range rb.DrainAll() {
			if v <= last {
				return fmt.Errorf("drained %d after %d", v, last)
			}
			last = v
			res.Drained++
		}
		return nil
	}

	for i := 0; i < s.Operations; i++ {
		if err := checkpoint(ctx, i, batch); err != nil {
			return Result{}, err
		}
		rb.Write(i)
		if s.DrainEvery > 0 && (i+1)%s.DrainEvery == 0 {
			if err := drain(); err != nil {
				return Result{}, err
			}
		}
	}
	if err := drain(); err != nil {
		return Result{}, err
	}

	rb.Release()

	if res.Drained+res.Evicted != s.Operations {
		return Result{}, fmt.Errorf("accounting mismatch: %d writes, %d drained, %d evicted",
			s.Operations, res.Drained, res.Evicted)
	}
	res.Bytes = uint64(s.Capacity) * uint64(unsafe.Sizeof(int(0)))
	return res, nil
}
