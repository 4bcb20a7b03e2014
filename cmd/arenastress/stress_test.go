package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/pavanmanishd/typedarena"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func TestConfigValidate(t *testing.T) {
	valid := config{Workers: 1, Allocs: 1, Batch: 1, Rounds: 1}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		modify func(*config)
		errMsg string
	}{
		{"workers", func(c *config) { c.Workers = 0 }, "workers must be positive"},
		{"allocs", func(c *config) { c.Allocs = -1 }, "allocs must be positive"},
		{"batch", func(c *config) { c.Batch = 0 }, "batch must be positive"},
		{"rounds", func(c *config) { c.Rounds = 0 }, "rounds must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			err := c.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRun(t *testing.T) {
	for _, batch := range []int{1, 7} {
		t.Run(fmt.Sprintf("batch=%d", batch), func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))

			cfg := config{Workers: 4, Allocs: 250, Batch: batch, Capacity: 16, Rounds: 3}
			require.NoError(t, run(context.Background(), cfg, log))

			out := buf.String()
			assert.Equal(t, 3, strings.Count(out, `"msg":"round verified"`))
			assert.Contains(t, out, `"msg":"done"`)
			assert.Contains(t, out, `"allocs":3000`)
			assert.Contains(t, out, `"rollbacks":3`)
		})
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, config{Workers: 2, Allocs: 10, Batch: 1, Rounds: 1}, discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify(t *testing.T) {
	newArena := func() *typedarena.FastArena[record] {
		a := typedarena.NewFastArena[record](8)
		a.AllocSlice([]record{{0, 0}, {0, 1}, {0, 2}})
		a.AllocSlice([]record{{1, 0}, {1, 1}})
		return a
	}

	tests := []struct {
		name   string
		spans  []span
		errMsg string
	}{
		{"valid", []span{{1, 3, 2}, {0, 0, 3}}, ""},
		{"gap", []span{{0, 0, 2}, {1, 3, 2}}, "gap in reservations"},
		{"overlap", []span{{0, 0, 3}, {1, 2, 3}}, "overlaps"},
		{"short", []span{{0, 0, 3}}, "reservations cover 3 values, cursor is at 5"},
		{"wrong worker", []span{{1, 0, 3}, {1, 3, 2}}, "holds a value from worker 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verify(newArena(), 0, tt.spans)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestVerifyOrder(t *testing.T) {
	a := typedarena.NewFastArena[record](4)
	a.AllocSlice([]record{{0, 1}, {0, 0}})

	err := verify(a, 0, []span{{0, 0, 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")
}

func TestVerifyFromCheckpoint(t *testing.T) {
	a := typedarena.NewFastArena[record](8)
	a.Alloc(record{9, 0})
	cp := a.Checkpoint()
	a.AllocSlice([]record{{0, 0}, {0, 1}})

	assert.NoError(t, verify(a, cp, []span{{0, 1, 2}}))
}

func TestServeMetrics(t *testing.T) {
	a := typedarena.NewFastArena[record](4)
	a.Alloc(record{})
	a.Alloc(record{})

	addr, shutdown, err := serveMetrics("127.0.0.1:0", a, discard)
	require.NoError(t, err)
	defer shutdown()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `arenastress_arena_len{arena="stress"} 2`)
	assert.Contains(t, string(body), `arenastress_arena_capacity{arena="stress"} 4`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServeMetricsBadAddr(t *testing.T) {
	_, _, err := serveMetrics("256.0.0.1:http", typedarena.NewArena[int](0), discard)
	assert.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	t.Setenv("ARENASTRESS_WORKERS", "8")
	t.Setenv("ARENASTRESS_ROUNDS", "3")

	fs := pflag.NewFlagSet("arenastress", pflag.ContinueOnError)
	workers := fs.IntP("workers", "w", 1, "")
	rounds := fs.IntP("rounds", "r", 1, "")
	batch := fs.IntP("batch", "b", 1, "")

	require.NoError(t, parseArgs(fs, []string{"-w", "2"}))
	assert.Equal(t, 2, *workers, "command line wins over the environment")
	assert.Equal(t, 3, *rounds)
	assert.Equal(t, 1, *batch)
}

func TestParseArgsInvalidEnv(t *testing.T) {
	t.Setenv("ARENASTRESS_BATCH", "lots")

	fs := pflag.NewFlagSet("arenastress", pflag.ContinueOnError)
	fs.Int("batch", 1, "")
	err := parseArgs(fs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARENASTRESS_BATCH")
}
