package fn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
}

func TestFromPair(t *testing.T) {
	if !FromPair("x", nil).IsOk() {
		t.Fatal("nil error should be ok")
	}
	if FromPair("x", errors.New("bad")).IsOk() {
		t.Fatal("error should be err")
	}
}

func TestCollectFirstError(t *testing.T) {
	first := errors.New("first")
	rs := []Result[int]{Ok(1), Err[int](first), Err[int](errors.New("second"))}
	_, err := Collect(rs).Unwrap()
	if !errors.Is(err, first) {
		t.Fatalf("want first error, got %v", err)
	}

	vals, err := Collect([]Result[int]{Ok(1), Ok(2)}).Unwrap()
	if err != nil || len(vals) != 2 || vals[1] != 2 {
		t.Fatalf("got %v, %v", vals, err)
	}
}

func TestChunk(t *testing.T) {
	items := make([]int, 250)
	batches := Chunk(items, 100)
	if len(batches) != 3 {
		t.Fatalf("want 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 100 || len(batches[2]) != 50 {
		t.Fatalf("bad batch sizes: %d, %d", len(batches[0]), len(batches[2]))
	}
	if Chunk(items, 0) != nil {
		t.Fatal("n <= 0 should return nil")
	}
	if Chunk([]int{}, 10) != nil {
		t.Fatal("empty input should return no batches")
	}
}

func TestParMapResultPreservesOrder(t *testing.T) {
	in := []int{5, 4, 3, 2, 1}
	var inflight, peak atomic.Int32
	out := ParMapResult(in, 2, func(_ int, v int) Result[int] {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Duration(v) * time.Millisecond)
		inflight.Add(-1)
		return Ok(v * 10)
	})
	for i, r := range out {
		v, _ := r.Unwrap()
		if v != in[i]*10 {
			t.Fatalf("index %d: want %d, got %d", i, in[i]*10, v)
		}
	}
	if peak.Load() > 2 {
		t.Fatalf("more than 2 workers in flight: %d", peak.Load())
	}
}

func TestThenShortCircuits(t *testing.T) {
	called := false
	fail := func(context.Context, int) Result[int] { return Err[int](errors.New("stop")) }
	next := func(context.Context, int) Result[string] {
		called = true
		return Ok("x")
	}
	r := Then[int, int, string](fail, next)(context.Background(), 1)
	if r.IsOk() || called {
		t.Fatal("second stage should not run after an error")
	}
}

func TestTracedStagePassesThrough(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	v, err := TracedStage("double", double)(context.Background(), 21).Unwrap()
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v", v, err)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Err[string](errors.New("transient"))
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" || attempts != 3 {
		t.Fatalf("got %q, %v after %d attempts", v, err, attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	opts := RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		return Err[int](permanent)
	})
	if r.IsOk() || attempts != 1 {
		t.Fatalf("want one attempt, got %d", attempts)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 3, InitialWait: time.Hour}, func(context.Context) Result[int] {
		return Err[int](errors.New("x"))
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
