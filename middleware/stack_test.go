// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	uferrors "github.com/techgopal/ultrafast-client/errors"
	"github.com/techgopal/ultrafast-client/request"
	"github.com/techgopal/ultrafast-client/retry"
)

func TestStackAdd(t *testing.T) {
	t.Run("panics", func(t *testing.T) {
		s := &Stack{}
		assert.PanicsWithValue(t, "ultrafast/middleware: nil middleware", func() {
			_ = s.Add(nil)
		})
		assert.PanicsWithValue(t, "ultrafast/middleware: empty middleware name", func() {
			_ = s.Add(&testNamed{})
		})
		assert.PanicsWithValue(t, "ultrafast/middleware: middleware implements no kind interface", func() {
			_ = s.Add(&testNamed{name: "anon"})
		})
	})
	t.Run("multi-kind registers once per kind", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(&testMulti{name: "both"}))
		assert.Equal(t, 2, s.Len())
	})
	t.Run("full kind rejected", func(t *testing.T) {
		s := NewStack(WithKindLimit(2))
		var calls []string
		require.NoError(t, s.Add(&testGate{name: "g1", calls: &calls}))
		require.NoError(t, s.Add(&testGate{name: "g2", calls: &calls}))
		err := s.Add(&testGate{name: "g3", calls: &calls})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStackFull)
		assert.Contains(t, err.Error(), "RateLimit")
		assert.Equal(t, 2, s.Len())

		// Other kinds still have room.
		require.NoError(t, s.Add(NewMetrics("m")))
		assert.Equal(t, 3, s.Len())
	})
	t.Run("full kind registers nothing", func(t *testing.T) {
		s := NewStack(WithKindLimit(1))
		require.NoError(t, s.Add(NewMetrics("m1")))
		err := s.Add(&testMulti{name: "both"})
		require.ErrorIs(t, err, ErrStackFull)
		assert.Equal(t, 1, s.Len())
	})
	t.Run("default limit", func(t *testing.T) {
		s := &Stack{}
		for i := 0; i < DefaultKindLimit; i++ {
			require.NoError(t, s.Add(NewMetrics(fmt.Sprintf("m%d", i))))
		}
		assert.ErrorIs(t, s.Add(NewMetrics("overflow")), ErrStackFull)
		assert.Equal(t, DefaultKindLimit, s.Len())
	})
}

func TestWithKindLimit(t *testing.T) {
	assert.PanicsWithValue(t, "ultrafast/middleware: kind limit must be positive", func() {
		WithKindLimit(0)
	})
	assert.PanicsWithValue(t, "ultrafast/middleware: kind limit must be positive", func() {
		WithKindLimit(-1)
	})
	s := NewStack(WithKindLimit(1))
	require.NoError(t, s.Add(NewMetrics("m1")))
	assert.ErrorIs(t, s.Add(NewMetrics("m2")), ErrStackFull)
}

func TestStackRemove(t *testing.T) {
	s := &Stack{}
	var calls []string
	require.NoError(t, s.Add(&testGate{name: "a", calls: &calls}))
	require.NoError(t, s.Add(&testGate{name: "b", calls: &calls}))
	require.NoError(t, s.Add(&testGate{name: "a", calls: &calls}))
	require.NoError(t, s.Add(&testMulti{name: "a"}))
	assert.Equal(t, 5, s.Len())

	assert.False(t, s.Remove("zzz"))
	assert.Equal(t, 5, s.Len())

	assert.True(t, s.Remove("a"))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Admit(context.Background(), "h"))
	assert.Equal(t, []string{"b:h"}, calls)

	assert.False(t, s.Remove("a"))
}

func TestStackAdmit(t *testing.T) {
	t.Run("empty admits", func(t *testing.T) {
		var s Stack
		assert.NoError(t, s.Admit(context.Background(), "api.example.com:443"))
	})
	t.Run("runs gates in order", func(t *testing.T) {
		s := &Stack{}
		var calls []string
		require.NoError(t, s.Add(&testGate{name: "g1", calls: &calls}))
		require.NoError(t, s.Add(&testGate{name: "g2", calls: &calls}))
		require.NoError(t, s.Admit(context.Background(), "h"))
		assert.Equal(t, []string{"g1:h", "g2:h"}, calls)
	})
	t.Run("first error aborts", func(t *testing.T) {
		s := &Stack{}
		var calls []string
		gateErr := &uferrors.RateLimitError{Host: "h", Wait: time.Second}
		require.NoError(t, s.Add(&testGate{name: "g1", calls: &calls, err: gateErr}))
		require.NoError(t, s.Add(&testGate{name: "g2", calls: &calls}))
		err := s.Admit(context.Background(), "h")
		assert.Same(t, gateErr, err)
		assert.Equal(t, []string{"g1:h"}, calls)
	})
}

func TestStackInjectHeaders(t *testing.T) {
	t.Run("empty stack returns input", func(t *testing.T) {
		var s Stack
		h := make(http.Header)
		h.Set("Accept", "application/json")
		got := s.InjectHeaders(h)
		assert.Equal(t, http.Header{"Accept": []string{"application/json"}}, got)
		got.Set("X-Probe", "1")
		assert.Equal(t, "1", h.Get("X-Probe"), "no injectors, no clone")
	})
	t.Run("absent-only merge", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(NewStaticHeaders("std", DefaultHeaders())))
		h := make(http.Header)
		h.Set("User-Agent", "custom-agent/2.0")
		got := s.InjectHeaders(h)
		assert.Equal(t, "custom-agent/2.0", got.Get("User-Agent"))
		assert.Equal(t, "*/*", got.Get("Accept"))
		assert.Equal(t, "gzip, deflate", got.Get("Accept-Encoding"))
		assert.Equal(t, "keep-alive", got.Get("Connection"))
	})
	t.Run("input left untouched", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(NewStaticHeaders("std", DefaultHeaders())))
		h := make(http.Header)
		h.Set("User-Agent", "custom-agent/2.0")
		s.InjectHeaders(h)
		assert.Equal(t, http.Header{"User-Agent": []string{"custom-agent/2.0"}}, h)
	})
	t.Run("nil input", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(NewStaticHeaders("one", map[string]string{"X-Tier": "gold"})))
		got := s.InjectHeaders(nil)
		assert.Equal(t, "gold", got.Get("X-Tier"))
	})
	t.Run("first injector wins", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(NewStaticHeaders("first", map[string]string{"X-Tier": "gold"})))
		require.NoError(t, s.Add(NewStaticHeaders("second", map[string]string{
			"X-Tier":   "bronze",
			"X-Region": "eu",
		})))
		got := s.InjectHeaders(make(http.Header))
		assert.Equal(t, "gold", got.Get("X-Tier"))
		assert.Equal(t, "eu", got.Get("X-Region"))
	})
	t.Run("invalid contributions dropped", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(&injectorFunc{name: "bad", f: func(h http.Header) {
			h.Set("X-Nul", "a\x00b")
			h.Set("X-Huge", strings.Repeat("v", MaxHeaderBytes))
			h["X-Empty"] = []string{""}
			h[""] = []string{"anonymous"}
			h.Set("X-Good", "ok")
		}}))
		got := s.InjectHeaders(make(http.Header))
		assert.Equal(t, http.Header{"X-Good": []string{"ok"}}, got)
	})
	t.Run("invalid values dropped from valid key", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(&injectorFunc{name: "mixed", f: func(h http.Header) {
			h.Add("X-Mixed", "good")
			h.Add("X-Mixed", "ba\x00d")
		}}))
		got := s.InjectHeaders(make(http.Header))
		assert.Equal(t, []string{"good"}, got.Values("X-Mixed"))
	})
	t.Run("multiple values preserved", func(t *testing.T) {
		s := &Stack{}
		require.NoError(t, s.Add(&injectorFunc{name: "multi", f: func(h http.Header) {
			h.Add("X-Trace", "a")
			h.Add("X-Trace", "b")
		}}))
		got := s.InjectHeaders(make(http.Header))
		assert.Equal(t, []string{"a", "b"}, got.Values("X-Trace"))
	})
}

func TestStackLogging(t *testing.T) {
	var calls []string
	s := &Stack{}
	require.NoError(t, s.Add(&testLogger{name: "l1", calls: &calls}))
	require.NoError(t, s.Add(&testLogger{name: "l2", calls: &calls}))
	e := &request.Execution{}
	s.LogRequest(e)
	s.LogResponse(e)
	s.LogError(e)
	assert.Equal(t, []string{
		"l1:request", "l2:request",
		"l1:response", "l2:response",
		"l1:error", "l2:error",
	}, calls)
}

func TestStackRecord(t *testing.T) {
	s := &Stack{}
	m1 := NewMetrics("m1")
	m2 := NewMetrics("m2")
	require.NoError(t, s.Add(m1))
	require.NoError(t, s.Add(m2))
	s.Record(&request.Execution{Response: &http.Response{StatusCode: 200}})
	assert.Equal(t, uint64(1), m1.Totals().Requests)
	assert.Equal(t, uint64(1), m2.Totals().Requests)
}

func TestStackOn(t *testing.T) {
	var evts []string
	var execs []*request.Execution
	s := &Stack{}
	require.NoError(t, s.Add(NewInterceptor("first", func(evt Event, e *request.Execution) {
		evts = append(evts, "1."+evt.Name())
		execs = append(execs, e)
	})))
	require.NoError(t, s.Add(NewInterceptor("second", func(evt Event, e *request.Execution) {
		evts = append(evts, "2."+evt.Name())
		execs = append(execs, e)
	})))

	e1 := &request.Execution{Attempt: 1}
	s.On(BeforeExecutionStart, e1)
	assert.Equal(t, []string{"1.BeforeExecutionStart", "2.BeforeExecutionStart"}, evts)
	assert.Equal(t, []*request.Execution{e1, e1}, execs)

	evts = evts[:0]
	execs = execs[:0]
	e2 := &request.Execution{Attempt: 2}
	s.On(AfterAttempt, e2)
	assert.Equal(t, []string{"1.AfterAttempt", "2.AfterAttempt"}, evts)
	assert.Equal(t, []*request.Execution{e2, e2}, execs)
}

func TestNewInterceptor(t *testing.T) {
	assert.PanicsWithValue(t, "ultrafast/middleware: nil interceptor func", func() {
		NewInterceptor("x", nil)
	})
	i := NewInterceptor("x", func(Event, *request.Execution) {})
	assert.Equal(t, "x", i.Name())
}

func TestStackPanicIsolation(t *testing.T) {
	t.Run("logging", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		var calls []string
		s := NewStack(WithLogger(zap.New(core)))
		require.NoError(t, s.Add(&testLogger{name: "bad", calls: &calls, panics: true}))
		require.NoError(t, s.Add(&testLogger{name: "good", calls: &calls}))

		assert.NotPanics(t, func() { s.LogRequest(&request.Execution{}) })
		assert.Equal(t, []string{"bad:request", "good:request"}, calls)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "middleware panic recovered", entries[0].Message)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "bad", ctx["middleware"])
		assert.Equal(t, "LogRequest", ctx["stage"])
		assert.Equal(t, "bad boom", ctx["panic"])
	})
	t.Run("metrics", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		s := NewStack(WithLogger(zap.New(core)))
		require.NoError(t, s.Add(&testRecorder{name: "bad", panics: true}))
		good := NewMetrics("good")
		require.NoError(t, s.Add(good))

		assert.NotPanics(t, func() { s.Record(&request.Execution{}) })
		assert.Equal(t, uint64(1), good.Totals().Requests)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "Record", entries[0].ContextMap()["stage"])
	})
	t.Run("interceptor", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		var evts []string
		s := NewStack(WithLogger(zap.New(core)))
		require.NoError(t, s.Add(NewInterceptor("bad", func(Event, *request.Execution) {
			panic("interceptor boom")
		})))
		require.NoError(t, s.Add(NewInterceptor("good", func(evt Event, _ *request.Execution) {
			evts = append(evts, evt.Name())
		})))

		assert.NotPanics(t, func() { s.On(BeforeAttempt, &request.Execution{}) })
		assert.Equal(t, []string{"BeforeAttempt"}, evts)

		entries := logs.All()
		require.Len(t, entries, 1)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "bad", ctx["middleware"])
		assert.Equal(t, "BeforeAttempt", ctx["stage"])
	})
	t.Run("no stack logger", func(t *testing.T) {
		var s Stack
		var calls []string
		require.NoError(t, s.Add(&testLogger{name: "bad", calls: &calls, panics: true}))
		assert.NotPanics(t, func() { s.LogError(&request.Execution{}) })
		assert.Equal(t, []string{"bad:error"}, calls)
	})
}

func TestStackRetryPolicy(t *testing.T) {
	var s Stack
	assert.Nil(t, s.RetryPolicy())

	p1 := retry.NewPolicy(retry.Times(1), retry.NewFixedWaiter(time.Second))
	p2 := retry.NewPolicy(retry.Times(2), retry.NewFixedWaiter(2*time.Second))
	require.NoError(t, s.Add(NewRetryAdvisor("one", p1)))
	require.NoError(t, s.Add(NewRetryAdvisor("two", p2)))

	// First registered advisor wins.
	require.NotNil(t, s.RetryPolicy())
	assert.Equal(t, time.Second, s.RetryPolicy().Wait(&request.Execution{}))

	assert.True(t, s.Remove("one"))
	require.NotNil(t, s.RetryPolicy())
	assert.Equal(t, 2*time.Second, s.RetryPolicy().Wait(&request.Execution{}))

	assert.True(t, s.Remove("two"))
	assert.Nil(t, s.RetryPolicy())
}

func TestNewRetryAdvisor(t *testing.T) {
	assert.PanicsWithValue(t, "ultrafast/middleware: nil retry policy", func() {
		NewRetryAdvisor("adv", nil)
	})
	p := retry.NewPolicy(retry.Times(3), retry.NewFixedWaiter(time.Second))
	a := NewRetryAdvisor("adv", p)
	assert.Equal(t, "adv", a.Name())
	assert.Equal(t, time.Second, a.Policy().Wait(&request.Execution{}))
}

func TestStackConcurrent(t *testing.T) {
	var s Stack
	m := NewMetrics("m")
	require.NoError(t, s.Add(m))

	var wg sync.WaitGroup
	e := &request.Execution{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("m%d", i)
			for j := 0; j < 100; j++ {
				switch j % 4 {
				case 0:
					_ = s.Add(NewMetrics(name))
				case 1:
					s.Record(e)
				case 2:
					s.Remove(name)
				case 3:
					_ = s.Len()
				}
			}
		}(i)
	}
	wg.Wait()

	// Every Record call reached the permanently installed recorder.
	assert.Equal(t, uint64(200), m.Totals().Requests)
}

type testNamed struct {
	name string
}

func (n *testNamed) Name() string { return n.name }

type testGate struct {
	name  string
	err   error
	calls *[]string
}

func (g *testGate) Name() string { return g.name }

func (g *testGate) Admit(_ context.Context, host string) error {
	*g.calls = append(*g.calls, g.name+":"+host)
	return g.err
}

type testLogger struct {
	name   string
	calls  *[]string
	panics bool
}

func (l *testLogger) Name() string { return l.name }

func (l *testLogger) LogRequest(*request.Execution)  { l.call("request") }
func (l *testLogger) LogResponse(*request.Execution) { l.call("response") }
func (l *testLogger) LogError(*request.Execution)    { l.call("error") }

func (l *testLogger) call(stage string) {
	*l.calls = append(*l.calls, l.name+":"+stage)
	if l.panics {
		panic(l.name + " boom")
	}
}

type testRecorder struct {
	name   string
	panics bool
}

func (r *testRecorder) Name() string { return r.name }

func (r *testRecorder) Record(*request.Execution) {
	if r.panics {
		panic(r.name + " boom")
	}
}

// testMulti implements both the Logger and Recorder kinds.
type testMulti struct {
	name string
}

func (m *testMulti) Name() string { return m.name }

func (m *testMulti) LogRequest(*request.Execution)  {}
func (m *testMulti) LogResponse(*request.Execution) {}
func (m *testMulti) LogError(*request.Execution)    {}
func (m *testMulti) Record(*request.Execution)      {}

type injectorFunc struct {
	name string
	f    func(http.Header)
}

func (i *injectorFunc) Name() string { return i.name }

func (i *injectorFunc) Inject(h http.Header) { i.f(h) }
