package attempts

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Record — счётчик неудачных входов для пары email:ip.
type Record struct {
	Count int
	Last  time.Time
}

// Store хранит счётчики. Запись должна исчезать через ttl после последней неудачи.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Fail(ctx context.Context, key string, now time.Time, ttl time.Duration) (Record, error)
	Reset(ctx context.Context, key string) error
}

// BlockedError — вход временно заблокирован.
type BlockedError struct {
	Remaining time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("слишком много попыток входа, повторите через %d мин.", e.Minutes())
}

func (e *BlockedError) Minutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

// Guard ограничивает число неудачных входов.
type Guard struct {
	store       Store
	maxAttempts int
	blockTime   time.Duration
	now         func() time.Time
}

func NewGuard(store Store, maxAttempts int, blockTime time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if blockTime <= 0 {
		blockTime = 15 * time.Minute
	}
	return &Guard{store: store, maxAttempts: maxAttempts, blockTime: blockTime, now: time.Now}
}

func Key(email, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return email + ":" + ip
}

// Check возвращает *BlockedError, если лимит исчерпан и блокировка не истекла.
func (g *Guard) Check(ctx context.Context, key string) error {
	rec, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	since := g.now().Sub(rec.Last)
	if rec.Count >= g.maxAttempts && since < g.blockTime {
		return &BlockedError{Remaining: g.blockTime - since}
	}
	if since >= g.blockTime {
		return g.store.Reset(ctx, key)
	}
	return nil
}

// Fail учитывает неудачу и возвращает, сколько попыток осталось (0 значит заблокирован).
func (g *Guard) Fail(ctx context.Context, key string) (int, error) {
	rec, err := g.store.Fail(ctx, key, g.now(), g.blockTime)
	if err != nil {
		return 0, err
	}
	left := g.maxAttempts - rec.Count
	if left < 0 {
		left = 0
	}
	return left, nil
}

func (g *Guard) Success(ctx context.Context, key string) error {
	return g.store.Reset(ctx, key)
}
