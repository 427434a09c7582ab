package smr

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
	"unsafe"
)

func TestEngine_RegisterDeregister(t *testing.T) {
	e := New()

	h1, err := e.Register()
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	h2, err := e.Register()
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if got := e.Stats().Participants; got != 2 {
		t.Fatalf("Participants = %d, want 2", got)
	}

	h1.Deregister()
	if got := e.Stats().Participants; got != 1 {
		t.Fatalf("Participants = %d, want 1", got)
	}

	// The freed slot is recycled by the next registration.
	h3, err := e.Register()
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if h3.p.slot != h1.p.slot {
		t.Errorf("slot %d not recycled, got %d", h1.p.slot, h3.p.slot)
	}

	h2.Deregister()
	h3.Deregister()
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestEngine_MaxParticipants(t *testing.T) {
	e := New(WithMaxParticipants(2))

	h1, _ := e.Register()
	h2, _ := e.Register()

	_, err := e.Register()
	var limitErr *TooManyParticipantsError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected TooManyParticipantsError, got %v", err)
	}
	if limitErr.Limit != 2 {
		t.Errorf("Limit = %d, want 2", limitErr.Limit)
	}

	// Deregistering frees capacity again.
	h1.Deregister()
	h3, err := e.Register()
	if err != nil {
		t.Fatalf("Register after deregister failed: %v", err)
	}

	h2.Deregister()
	h3.Deregister()
}

func TestEngine_Close(t *testing.T) {
	t.Run("fails while participants remain", func(t *testing.T) {
		e := New()
		h, _ := e.Register()

		if err := e.Close(); !errors.Is(err, ErrParticipantsActive) {
			t.Fatalf("Close err = %v, want ErrParticipantsActive", err)
		}

		h.Deregister()
		if err := e.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})

	t.Run("drains handed-off entries", func(t *testing.T) {
		e := New()
		h, _ := e.Register()

		freed := 0
		h.Retire(unsafe.Pointer(new(int)), func(unsafe.Pointer) { freed++ })
		h.Deregister()

		if err := e.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if freed != 1 {
			t.Fatalf("expected the pending entry finalized on Close, freed = %d", freed)
		}
		if got := e.Stats().PendingRetired; got != 0 {
			t.Errorf("PendingRetired = %d, want 0", got)
		}
	})

	t.Run("register after close", func(t *testing.T) {
		e := New()
		if err := e.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := e.Register(); !errors.Is(err, ErrEngineClosed) {
			t.Fatalf("Register err = %v, want ErrEngineClosed", err)
		}
		// Idempotent.
		if err := e.Close(); err != nil {
			t.Fatalf("second Close failed: %v", err)
		}
	})
}

func TestHandle_NestedEnter(t *testing.T) {
	e := New()
	h, _ := e.Register()
	defer h.Deregister()

	h.Enter()
	observed, active := h.p.rec.Load()
	if !active {
		t.Fatal("expected active after outer Enter")
	}

	// A nested Enter after the clock moved must not republish.
	e.clock.Advance()
	h.Enter()
	if got, _ := h.p.rec.Load(); got != observed {
		t.Fatalf("nested Enter republished epoch %d, outer was %d", got, observed)
	}

	h.Exit()
	if !h.p.rec.Active() {
		t.Fatal("inner Exit must keep the section open")
	}
	h.Exit()
	if h.p.rec.Active() {
		t.Fatal("outer Exit must close the section")
	}
}

func TestHandle_ContractViolations(t *testing.T) {
	mustPanic := func(t *testing.T, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		f()
	}

	t.Run("exit without enter", func(t *testing.T) {
		e := New()
		h, _ := e.Register()
		mustPanic(t, h.Exit)
	})

	t.Run("deregister inside critical section", func(t *testing.T) {
		e := New()
		h, _ := e.Register()
		h.Enter()
		mustPanic(t, h.Deregister)
	})

	t.Run("deregister twice", func(t *testing.T) {
		e := New()
		h, _ := e.Register()
		h.Deregister()
		mustPanic(t, h.Deregister)
	})

	t.Run("use after deregister", func(t *testing.T) {
		e := New()
		h, _ := e.Register()
		h.Deregister()
		mustPanic(t, h.Enter)
	})

	t.Run("nil finalizer", func(t *testing.T) {
		e := New()
		h, _ := e.Register()
		mustPanic(t, func() { h.Retire(unsafe.Pointer(new(int)), nil) })
	})
}

type captureMetrics struct {
	NoopMetricsObserver
	reclaims    int
	lastFreed   int
	lastPending int
	registers   int
}

func (m *captureMetrics) OnReclaim(_ time.Duration, _, freed int, _ uint64) {
	m.reclaims++
	m.lastFreed = freed
}
func (m *captureMetrics) OnRetire(pending int) { m.lastPending = pending }
func (m *captureMetrics) OnRegister(_ int)     { m.registers++ }

func TestEngine_MetricsObserver(t *testing.T) {
	obs := &captureMetrics{}
	e := New(WithMetricsObserver(obs), WithLogger(NewTextLogger(slog.LevelError)))

	h, _ := e.Register()
	h.Retire(unsafe.Pointer(new(int)), func(unsafe.Pointer) {})
	e.Reclaim()
	h.Deregister()

	if obs.registers != 1 {
		t.Errorf("registers = %d, want 1", obs.registers)
	}
	if obs.lastPending != 1 {
		t.Errorf("pending reported on retire = %d, want 1", obs.lastPending)
	}
	if obs.reclaims != 1 || obs.lastFreed != 1 {
		t.Errorf("reclaims = %d freed = %d, want 1 and 1", obs.reclaims, obs.lastFreed)
	}
}

func TestEngine_ConcurrentRegister(t *testing.T) {
	const goroutines = 32

	e := New()
	var wg sync.WaitGroup

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, err := e.Register()
				if err != nil {
					t.Errorf("Register failed: %v", err)
					return
				}
				h.Enter()
				h.Exit()
				h.Deregister()
			}
		}()
	}
	wg.Wait()

	if got := e.Stats().Participants; got != 0 {
		t.Fatalf("Participants = %d, want 0", got)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
