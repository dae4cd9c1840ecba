// Package events carries engine notifications (visibility changes, data
// source refreshes, workflow outcomes) to interested embedder code. The bus
// is strictly best-effort: a full channel or an absent handler never
// affects rule evaluation or workflow results.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrBusClosed indicates the event bus has been closed.
	ErrBusClosed = errors.New("event bus is closed")
	// ErrChannelFull indicates the event channel cannot accept more events.
	ErrChannelFull = errors.New("event channel is full")
	// ErrNoHandler indicates no handlers are registered for the event type.
	ErrNoHandler = errors.New("no handlers registered for event type")
)

// Engine event types.
const (
	FieldShown        = "field_shown"
	FieldHidden       = "field_hidden"
	TabToggled        = "tab_toggled"
	RefreshRequested  = "refresh_requested"
	RuleSkipped       = "rule_skipped"
	WorkflowStarted   = "workflow_started"
	WorkflowCompleted = "workflow_completed"
	WorkflowFailed    = "workflow_failed"
	WorkflowCancelled = "workflow_cancelled"
)

// Event is one engine notification. RunID is set for workflow events,
// Scope for dependency-evaluation events.
type Event struct {
	Type  string
	RunID uint64
	Scope string
	Data  map[string]interface{}
}

// Handler consumes events.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus manages subscriptions and asynchronous delivery.
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
	eventCh  chan Event
	logger   *slog.Logger
	wg       sync.WaitGroup
	closed   bool
	closeMu  sync.RWMutex
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the event channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		b.eventCh = make(chan Event, size)
	}
}

// WithLogger sets the logger used for handler errors.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates a Bus with async delivery. The default buffer holds 100
// events; handler errors are logged, never propagated.
func NewBus(options ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		eventCh:  make(chan Event, 100),
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(b)
	}

	b.wg.Add(1)
	go b.processEvents()

	return b
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeFunc registers a function as a handler for an event type.
func (b *Bus) SubscribeFunc(eventType string, fn func(ctx context.Context, event Event) error) {
	b.Subscribe(eventType, HandlerFunc(fn))
}

// HasSubscribers reports whether any handler listens for the event type.
func (b *Bus) HasSubscribers(eventType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish queues an event for asynchronous delivery. It returns an error
// when the bus is closed, the channel is full, or nothing listens; callers
// inside the engines ignore the error by design of the bus contract.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.closeMu.RLock()
	if b.closed {
		b.closeMu.RUnlock()
		return ErrBusClosed
	}
	b.closeMu.RUnlock()

	if !b.HasSubscribers(event.Type) {
		return ErrNoHandler
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.eventCh <- event:
		return nil
	default:
		return ErrChannelFull
	}
}

// PublishSync delivers an event to all handlers before returning, bounded
// by a 5-second timeout, and returns every handler error.
func (b *Bus) PublishSync(ctx context.Context, event Event) []error {
	b.closeMu.RLock()
	if b.closed {
		b.closeMu.RUnlock()
		return []error{ErrBusClosed}
	}
	b.closeMu.RUnlock()

	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return []error{ErrNoHandler}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return runHandlers(timeoutCtx, handlers, event)
}

// Stop shuts down delivery, discarding queued events.
func (b *Bus) Stop() {
	b.closeMu.Lock()
	if !b.closed {
		b.closed = true
		for len(b.eventCh) > 0 {
			<-b.eventCh
		}
		close(b.eventCh)
	}
	b.closeMu.Unlock()

	b.wg.Wait()
}

func (b *Bus) processEvents() {
	defer b.wg.Done()

	for event := range b.eventCh {
		b.mu.RLock()
		handlers := b.handlers[event.Type]
		b.mu.RUnlock()

		if len(handlers) == 0 {
			continue
		}

		for _, err := range runHandlers(context.Background(), handlers, event) {
			b.logger.Warn("event handler failed",
				"type", event.Type, "run_id", event.RunID, "scope", event.Scope, "error", err)
		}
	}
}

// runHandlers fans an event out to all handlers and collects their errors.
func runHandlers(ctx context.Context, handlers []Handler, event Event) []error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))

	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			if err := h.Handle(ctx, event); err != nil {
				errCh <- err
			}
		}(handler)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}
