package authcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CallFunc — сетевой вызов, который нужно дросселировать.
type CallFunc func(ctx context.Context) (any, error)

// Throttler ограничивает вызовы по ключу: первый в окне идёт сразу,
// пришедшие во время выполнения присоединяются к нему, а пришедшие
// после схлопываются в один отложенный вызов в конце окна.
type Throttler struct {
	limiter *Limiter
	group   singleflight.Group

	mu  sync.Mutex
	gen uint64
	// ключ -> ключ singleflight текущего вызова
	inflight map[string]string
	pending  map[string]*trailing
}

type trailing struct {
	ctx  context.Context
	fn   CallFunc
	done chan struct{}
	val  any
	err  error
}

func NewThrottler(limiter *Limiter) *Throttler {
	return &Throttler{
		limiter:  limiter,
		inflight: make(map[string]string),
		pending:  make(map[string]*trailing),
	}
}

// Do выполняет fn не чаще одного раза за окно для key и возвращает общий результат.
// ctx ограничивает только ожидание вызывающего; сам вызов от него отвязан.
func (t *Throttler) Do(ctx context.Context, key string, fn CallFunc) (any, error) {
	t.mu.Lock()

	if tr, ok := t.pending[key]; ok {
		// последний вызов в окне задаёт, что именно выполнится
		tr.ctx, tr.fn = context.WithoutCancel(ctx), fn
		t.mu.Unlock()
		return waitTrailing(ctx, tr)
	}

	if call, ok := t.inflight[key]; ok {
		ch := t.group.DoChan(call, t.wrap(key, call, context.WithoutCancel(ctx), fn))
		t.mu.Unlock()
		return waitResult(ctx, ch)
	}

	if t.limiter.TryAcquire(key) {
		ch := t.start(key, context.WithoutCancel(ctx), fn)
		t.mu.Unlock()
		return waitResult(ctx, ch)
	}

	tr := &trailing{ctx: context.WithoutCancel(ctx), fn: fn, done: make(chan struct{})}
	t.pending[key] = tr
	t.schedule(key, tr, t.limiter.Remaining(key))
	t.mu.Unlock()
	return waitTrailing(ctx, tr)
}

// start запускает новый вызов под собственным ключом singleflight.
// Вызывается под t.mu.
func (t *Throttler) start(key string, ctx context.Context, fn CallFunc) <-chan singleflight.Result {
	t.gen++
	call := key + "#" + strconv.FormatUint(t.gen, 10)
	t.inflight[key] = call
	return t.group.DoChan(call, t.wrap(key, call, ctx, fn))
}

// wrap снимает флаг inflight только своего вызова. Ключ call уникален,
// поэтому новый вызов не может присоединиться к уже завершённому.
func (t *Throttler) wrap(key, call string, ctx context.Context, fn CallFunc) func() (any, error) {
	return func() (any, error) {
		v, err := fn(ctx)
		t.mu.Lock()
		if t.inflight[key] == call {
			delete(t.inflight, key)
		}
		t.mu.Unlock()
		return v, err
	}
}

func (t *Throttler) schedule(key string, tr *trailing, d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	time.AfterFunc(d, func() { t.fire(key, tr) })
}

func (t *Throttler) fire(key string, tr *trailing) {
	t.mu.Lock()
	if !t.limiter.TryAcquire(key) {
		t.schedule(key, tr, t.limiter.Remaining(key))
		t.mu.Unlock()
		return
	}
	delete(t.pending, key)
	ch := t.start(key, tr.ctx, tr.fn)
	t.mu.Unlock()

	res := <-ch
	tr.val, tr.err = res.Val, res.Err
	close(tr.done)
}

func waitResult(ctx context.Context, ch <-chan singleflight.Result) (any, error) {
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitTrailing(ctx context.Context, tr *trailing) (any, error) {
	select {
	case <-tr.done:
		return tr.val, tr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
