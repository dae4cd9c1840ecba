package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBusPublishDelivers(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var wg sync.WaitGroup
	wg.Add(1)

	bus.Subscribe(FieldShown, &mockHandler{
		handleFunc: func(ctx context.Context, event Event) error {
			defer wg.Done()
			if event.Type != FieldShown {
				t.Errorf("expected type %q, got %q", FieldShown, event.Type)
			}
			if event.Scope != "order|details" {
				t.Errorf("expected scope order|details, got %q", event.Scope)
			}
			return nil
		},
	})

	err := bus.Publish(context.Background(), Event{
		Type:  FieldShown,
		Scope: "order|details",
		Data:  map[string]interface{}{"field": "state"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitWithTimeout(t, &wg, time.Second)
}

func TestBusPublishSyncCollectsErrors(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	bus.Subscribe(WorkflowFailed, &mockHandler{
		handleFunc: func(ctx context.Context, event Event) error {
			return errors.New("handler boom")
		},
	})

	errs := bus.PublishSync(context.Background(), Event{Type: WorkflowFailed, RunID: 7})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Error() != "handler boom" {
		t.Errorf("unexpected error %v", errs[0])
	}
}

func TestBusPublishNoHandlers(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	err := bus.Publish(context.Background(), Event{Type: "unknown_event"})
	if err != ErrNoHandler {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestBusPublishAfterStop(t *testing.T) {
	bus := NewBus()
	bus.Stop()

	err := bus.Publish(context.Background(), Event{Type: TabToggled})
	if err != ErrBusClosed {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}

func TestBusHasSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	if bus.HasSubscribers(RefreshRequested) {
		t.Fatal("HasSubscribers should be false before subscription")
	}

	bus.Subscribe(RefreshRequested, &mockHandler{})

	if !bus.HasSubscribers(RefreshRequested) {
		t.Fatal("HasSubscribers should be true after subscription")
	}
}

func TestBusSubscribeFunc(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var mu sync.Mutex
	var called bool
	var wg sync.WaitGroup
	wg.Add(1)

	bus.SubscribeFunc(WorkflowCompleted, func(ctx context.Context, event Event) error {
		defer wg.Done()
		mu.Lock()
		called = true
		mu.Unlock()
		return nil
	})

	if err := bus.Publish(context.Background(), Event{Type: WorkflowCompleted, RunID: 1}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitWithTimeout(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Fatal("handler function was not called")
	}
}

func TestBusBufferSizeOption(t *testing.T) {
	bus := NewBus(WithBufferSize(200))
	defer bus.Stop()

	if cap(bus.eventCh) != 200 {
		t.Fatalf("expected buffer size 200, got %d", cap(bus.eventCh))
	}
}

func TestBusCancelledContext(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	bus.Subscribe(FieldHidden, &mockHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(ctx, Event{Type: FieldHidden})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type mockHandler struct {
	handleFunc func(ctx context.Context, event Event) error
}

func (m *mockHandler) Handle(ctx context.Context, event Event) error {
	if m.handleFunc != nil {
		return m.handleFunc(ctx, event)
	}
	return nil
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for handlers")
	}
}
