package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/commands"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/session"
	"chakastays/internal/domain/user"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]IdempotencyRecord{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *memoryStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	return nil
}

type createResult struct {
	ID string `json:"id"`
}

type createCommand struct {
	Name       string `json:"name" validate:"required"`
	Guests     int    `json:"guests" validate:"min=1"`
	RequestKey string
	Who        session.Principal
}

func (createCommand) Key() string { return "test.create" }

func (c createCommand) IdempotencyKey() string { return c.RequestKey }

func (createCommand) ResultPrototype() any { return &createResult{} }

func (c createCommand) Caller() session.Principal { return c.Who }

func (createCommand) RequiredRole() user.Role { return user.RoleHost }

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &createResult{ID: "r1"}, nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newMemoryStore(), nil, nil))
	cmd := createCommand{Name: "a", Guests: 1, RequestKey: "k1"}

	first, err := bus.Dispatch(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := bus.Dispatch(context.Background(), cmd)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", base.calls)
	}
	if first.(*createResult).ID != second.(*createResult).ID {
		t.Fatalf("expected replayed result, got %v and %v", first, second)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	base := &countingBus{err: &apperr.TimeoutError{Op: "x", Budget: time.Second}}
	bus := ChainCommands(base, Idempotency(newMemoryStore(), nil, nil))
	cmd := createCommand{Name: "a", Guests: 1, RequestKey: "k1"}
	for i := 0; i < 2; i++ {
		if _, err := bus.Dispatch(context.Background(), cmd); !apperr.IsTimeout(err) {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}
	if base.calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", base.calls)
	}
}

type otherCommand struct{ createCommand }

func (otherCommand) Key() string { return "test.other" }

func TestIdempotencyRejectsKeyReuseAcrossCommands(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newMemoryStore(), nil, nil))
	if _, err := bus.Dispatch(context.Background(), createCommand{Name: "a", Guests: 1, RequestKey: "k1"}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	other := otherCommand{createCommand{Name: "a", Guests: 1, RequestKey: "k1"}}
	if _, err := bus.Dispatch(context.Background(), other); !errors.Is(err, ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused, got %v", err)
	}
}

func TestIdempotencySerializesConcurrentDuplicates(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newMemoryStore(), nil, nil))
	cmd := createCommand{Name: "a", Guests: 1, RequestKey: "k1"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := bus.Dispatch(context.Background(), cmd); err != nil {
				t.Errorf("dispatch: %v", err)
			}
		}()
	}
	wg.Wait()
	if base.calls != 1 {
		t.Fatalf("expected a single handler run, got %d", base.calls)
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newMemoryStore(), nil, nil))
	cmd := createCommand{Name: "a", Guests: 1}
	_, _ = bus.Dispatch(context.Background(), cmd)
	_, _ = bus.Dispatch(context.Background(), cmd)
	if base.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", base.calls)
	}
}

func TestValidationRejectsBadCommand(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Validation(NewStructValidator()))
	_, err := bus.Dispatch(context.Background(), createCommand{Guests: 0})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperr.ValidationReason(err) != reasonInvalidRequest {
		t.Fatalf("unexpected reason %q", apperr.ValidationReason(err))
	}
	if base.calls != 0 {
		t.Fatalf("handler must not run")
	}
}

func TestAuthorizationChecksPrincipal(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Authorization(RoleAuthorizer{}))

	_, err := bus.Dispatch(context.Background(), createCommand{Name: "a", Guests: 1})
	if !apperr.IsAuthorization(err) || !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected authentication required, got %v", err)
	}
	guest := session.Principal{UserID: "u1", Roles: []user.Role{user.RoleGuest}}
	_, err = bus.Dispatch(context.Background(), createCommand{Name: "a", Guests: 1, Who: guest})
	if !errors.Is(err, ErrRoleRequired) {
		t.Fatalf("expected role required, got %v", err)
	}
	host := session.Principal{UserID: "u1", Roles: []user.Role{user.RoleHost}}
	if _, err := bus.Dispatch(context.Background(), createCommand{Name: "a", Guests: 1, Who: host}); err != nil {
		t.Fatalf("expected host to pass, got %v", err)
	}
}

type flushCounter struct{ flushed int }

func (f *flushCounter) Add(ctx context.Context, rec outbox.EventRecord) error { return nil }
func (f *flushCounter) Flush(ctx context.Context) error {
	f.flushed++
	return nil
}

func TestOutboxFlushOnlyAfterSuccess(t *testing.T) {
	box := &flushCounter{}
	ok := ChainCommands(&countingBus{}, OutboxFlush(box))
	failing := ChainCommands(&countingBus{err: errors.New("boom")}, OutboxFlush(box))

	_, _ = ok.Dispatch(context.Background(), createCommand{})
	_, _ = failing.Dispatch(context.Background(), createCommand{})
	if box.flushed != 1 {
		t.Fatalf("expected one flush, got %d", box.flushed)
	}
}

func TestChainOrderIsOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := ChainCommands(&countingBus{}, tag("a"), tag("b"), tag("c"))
	_, _ = bus.Dispatch(context.Background(), createCommand{})
	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Fatalf("unexpected order %v", order)
	}
}
