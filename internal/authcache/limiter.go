package authcache

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter пропускает не больше одного события на ключ за интервал.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	byKey    map[string]*rate.Limiter
}

func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Limiter{
		interval: interval,
		now:      time.Now,
		byKey:    make(map[string]*rate.Limiter),
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.byKey[key] = lim
	}
	return lim
}

// TryAcquire занимает окно для key, если оно свободно.
func (l *Limiter) TryAcquire(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// Remaining — сколько ждать до открытия следующего окна для key.
func (l *Limiter) Remaining(key string) time.Duration {
	tokens := l.get(key).TokensAt(l.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(l.interval))
}

func (l *Limiter) Interval() time.Duration { return l.interval }
