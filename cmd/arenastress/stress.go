package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/pavanmanishd/typedarena"
	"github.com/pavanmanishd/typedarena/promarena"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Workers     int
	Allocs      int
	Batch       int
	Capacity    int
	Rounds      int
	MetricsAddr string
}

func (c config) validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.Allocs <= 0:
		return fmt.Errorf("allocs must be positive, got %d", c.Allocs)
	case c.Batch <= 0:
		return fmt.Errorf("batch must be positive, got %d", c.Batch)
	case c.Rounds <= 0:
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	return nil
}

// record identifies the worker that wrote a slot and the order it wrote it in.
type record struct {
	Worker int
	Seq    int
}

// span is one reservation made by a worker.
type span struct {
	Worker int
	Start  int
	N      int
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	arena := typedarena.NewFastArena[record](cfg.Capacity,
		typedarena.WithLogger(log),
		typedarena.WithName("stress"),
	)
	defer arena.Release()

	if cfg.MetricsAddr != "" {
		_, shutdown, err := serveMetrics(cfg.MetricsAddr, arena, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	log.Info("starting",
		"workers", cfg.Workers,
		"allocs", cfg.Allocs,
		"batch", cfg.Batch,
		"capacity", arena.Cap(),
		"rounds", cfg.Rounds,
	)
	for round := range cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runRound(ctx, cfg, arena, log.With("round", round)); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
	}

	m := arena.Metrics()
	log.Info("done",
		"allocs", m.Allocs,
		"rollbacks", m.Rollbacks,
		"grows", m.Grows,
		"capacity", m.Capacity,
	)
	return nil
}

func runRound(ctx context.Context, cfg config, arena *typedarena.FastArena[record], log *slog.Logger) error {
	cp := arena.Checkpoint()
	if need := cp.Len() + cfg.Workers*cfg.Allocs; need > arena.Cap() {
		log.Debug("growing arena", "from", arena.Cap(), "to", need)
		arena.GrowTo(need)
	}

	start := time.Now()
	spans := make([][]span, cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		g.Go(func() error {
			out, err := allocate(gctx, arena, w, cfg.Allocs, cfg.Batch)
			spans[w] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := verify(arena, cp, slices.Concat(spans...)); err != nil {
		return err
	}

	total := cfg.Workers * cfg.Allocs
	log.Info("round verified",
		"values", total,
		"elapsed", elapsed,
		"ns_per_alloc", elapsed.Nanoseconds()/int64(total),
	)
	arena.Rollback(cp)
	return nil
}

// allocate writes n records for worker w in calls of up to batch values and
// returns the reservations it received.
func allocate(ctx context.Context, arena *typedarena.FastArena[record], w, n, batch int) ([]span, error) {
	out := make([]span, 0, (n+batch-1)/batch)
	buf := make([]record, 0, batch)
	for seq := 0; seq < n; {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		k := min(batch, n-seq)
		if k == 1 {
			idx, err := arena.TryAlloc(record{w, seq})
			if err != nil {
				return out, err
			}
			out = append(out, span{w, idx.Raw(), 1})
		} else {
			buf = buf[:0]
			for i := range k {
				buf = append(buf, record{w, seq + i})
			}
			idx, _ := arena.AllocSlice(buf)
			out = append(out, span{w, idx.Raw(), k})
		}
		seq += k
	}
	return out, nil
}

// verify checks that spans tile [cp, Reserved) with no gap or overlap, that
// each slot holds what its worker wrote in order, and that everything
// reserved is published.
func verify(arena *typedarena.FastArena[record], cp typedarena.Checkpoint[record], spans []span) error {
	if n, r := arena.Len(), arena.Reserved(); n != r {
		return fmt.Errorf("published %d of %d reserved values", n, r)
	}
	slices.SortFunc(spans, func(a, b span) int { return a.Start - b.Start })

	next := cp.Len()
	lastSeq := make(map[int]int)
	for _, s := range spans {
		if s.Start != next {
			if s.Start < next {
				return fmt.Errorf("worker %d reservation at %d overlaps previous ending at %d", s.Worker, s.Start, next)
			}
			return fmt.Errorf("gap in reservations between %d and %d", next, s.Start)
		}
		for i := s.Start; i < s.Start+s.N; i++ {
			v := arena.Get(typedarena.IdxFromRaw[record](i))
			if v.Worker != s.Worker {
				return fmt.Errorf("slot %d reserved by worker %d holds a value from worker %d", i, s.Worker, v.Worker)
			}
			if prev, ok := lastSeq[v.Worker]; ok && v.Seq <= prev {
				return fmt.Errorf("slot %d out of order for worker %d: %d after %d", i, v.Worker, v.Seq, prev)
			}
			lastSeq[v.Worker] = v.Seq
		}
		next += s.N
	}
	if r := arena.Reserved(); next != r {
		return fmt.Errorf("reservations cover %d values, cursor is at %d", next-cp.Len(), r-cp.Len())
	}
	return nil
}

// serveMetrics exposes arena on /metrics at addr. It returns the address
// actually bound and a function that stops the server.
func serveMetrics(addr string, arena typedarena.MetricsSource, log *slog.Logger) (string, func(), error) {
	c := promarena.NewCollector("arenastress")
	c.Register("stress", arena)

	reg := prometheus.NewRegistry()
	reg.MustRegister(c, collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %q: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}
