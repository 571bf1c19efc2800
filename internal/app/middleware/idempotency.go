package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chakastays/internal/app/commands"
)

// IdempotentCommand is implemented by commands a client may resend with the
// same Idempotency-Key header.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a fresh pointer the stored payload decodes into.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var ErrKeyReused = errors.New("middleware: idempotency key reused for a different command")

// Idempotency replays the stored result of a succeeded command with the same
// key. Failures are not recorded, so a request that timed out can be resent.
// Concurrent requests sharing a key are serialized; the later one replays.
func Idempotency(store IdempotencyStore, codec ResultCodec, now func() time.Time) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	g := &idempotencyGuard{store: store, codec: codec, now: now, locks: map[string]*keyLock{}}
	if g.codec == nil {
		g.codec = JSONResultCodec{}
	}
	if g.now == nil {
		g.now = time.Now
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			return g.run(ctx, idCmd, next)
		})
	}
}

type keyLock struct {
	mu      sync.Mutex
	waiters int
}

type idempotencyGuard struct {
	store IdempotencyStore
	codec ResultCodec
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

func (g *idempotencyGuard) run(ctx context.Context, cmd IdempotentCommand, next commands.Bus) (any, error) {
	key := cmd.IdempotencyKey()
	unlock := g.lock(key)
	defer unlock()

	rec, found, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if found {
		return g.replay(rec, cmd)
	}

	result, err := next.Dispatch(ctx, cmd)
	if err != nil {
		return nil, err
	}
	rec = IdempotencyRecord{Key: key, Command: cmd.Key(), OccurredAt: g.now().UTC()}
	if result != nil {
		if rec.Payload, err = g.codec.Encode(result); err != nil {
			return nil, fmt.Errorf("idempotency encode: %w", err)
		}
	}
	if err := g.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("idempotency save: %w", err)
	}
	return result, nil
}

func (g *idempotencyGuard) replay(rec IdempotencyRecord, cmd IdempotentCommand) (any, error) {
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, ErrKeyReused
	}
	out := cmd.ResultPrototype()
	if out == nil {
		return nil, fmt.Errorf("middleware: %s has no result prototype", cmd.Key())
	}
	if len(rec.Payload) == 0 {
		return out, nil
	}
	if err := g.codec.Decode(rec.Payload, out); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return out, nil
}

// lock takes the per-key mutex and returns its release. Entries are dropped
// once nobody waits on them.
func (g *idempotencyGuard) lock(key string) func() {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{}
		g.locks[key] = l
	}
	l.waiters++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.waiters--
		if l.waiters == 0 {
			delete(g.locks, key)
		}
		g.mu.Unlock()
	}
}
