package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"portfolio/internal/logger"
	"portfolio/internal/model"
	"portfolio/internal/storage"
)

var (
	ErrEnqueueTimeout = errors.New("timeout waiting for counter request to be accepted")
	ErrStopped        = errors.New("counter manager stopped")
)

type CounterCfg struct {
	EnqueueTimeout time.Duration
	MaxPending     int
}

type counterRequest struct {
	op    model.OpsType
	ctx   context.Context
	reply chan counterReply
}

type counterReply struct {
	count uint64
	err   error
}

/*
CounterManager keeps a single goroutine in charge of the store:
- Ordering: the channel preserves request order and only the run goroutine touches the store.
- No lost updates: read-modify-write sequences never interleave within this process.
- Backpressure: bounded channel + timeout lets callers give up instead of queueing forever.
- Shutdown: cancelling the context drains nothing further and closes the store.

Get and Increment never return errors. Every failure is logged and turned
into a degraded count.
*/
type CounterManager struct {
	store    storage.Store
	requests chan counterRequest
	done     chan struct{}
	cfg      CounterCfg
	log      logger.Logger
}

const (
	defaultEnqueueTimeout = 2 * time.Second
	defaultMaxPending     = 1024
)

func NewCounterManager(ctx context.Context, store storage.Store, cfg CounterCfg, log logger.Logger) (*CounterManager, context.CancelFunc, error) {
	if store == nil {
		return nil, nil, errors.New("nil store")
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultEnqueueTimeout
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = defaultMaxPending
	}

	m := &CounterManager{
		store:    store,
		requests: make(chan counterRequest, cfg.MaxPending),
		done:     make(chan struct{}),
		cfg:      cfg,
		log:      log,
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(m.done)
		m.run(runCtx)
		if err := m.store.Close(); err != nil {
			m.log.Error("closing counter store", "err", err)
		}
	}()
	return m, cancel, nil
}

// Done is closed once the run goroutine has exited and the store is closed.
func (m *CounterManager) Done() <-chan struct{} {
	return m.done
}

// Get returns the persisted count, or 0 when it cannot be read.
func (m *CounterManager) Get(ctx context.Context) uint64 {
	count, err := m.submit(ctx, model.GET)
	if err != nil {
		m.log.Error("reading visitor count", "err", err)
		return 0
	}
	return count
}

// Increment persists count+1 and returns it. When the write fails it returns
// the value read just before, or 0 if that read failed too.
func (m *CounterManager) Increment(ctx context.Context) uint64 {
	count, err := m.submit(ctx, model.INCREMENT)
	if err != nil {
		m.log.Error("incrementing visitor count", "err", err)
	}
	return count
}

func (m *CounterManager) submit(ctx context.Context, op model.OpsType) (uint64, error) {
	req := counterRequest{op: op, ctx: ctx, reply: make(chan counterReply, 1)}

	timer := time.NewTimer(m.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case m.requests <- req:
	case <-m.done:
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
		return 0, ErrEnqueueTimeout
	}

	select {
	case r := <-req.reply:
		return r.count, r.err
	case <-m.done:
		// run may have answered right before exiting
		select {
		case r := <-req.reply:
			return r.count, r.err
		default:
			return 0, ErrStopped
		}
	}
}

func (m *CounterManager) run(ctx context.Context) {
	for {
		select {
		case req := <-m.requests:
			req.reply <- m.apply(req)
		case <-ctx.Done():
			m.log.Debug("counter manager shutting down")
			return
		}
	}
}

func (m *CounterManager) apply(req counterRequest) counterReply {
	if err := req.ctx.Err(); err != nil {
		return counterReply{err: err}
	}

	current, err := m.store.Load(req.ctx)
	if err != nil {
		return counterReply{err: fmt.Errorf("%s: load: %w", req.op, err)}
	}
	if req.op == model.GET {
		return counterReply{count: current.Count}
	}

	if inc, ok := m.store.(storage.Incrementer); ok {
		next, err := inc.Increment(req.ctx)
		if err != nil {
			return counterReply{count: current.Count, err: fmt.Errorf("%s: native increment: %w", req.op, err)}
		}
		return counterReply{count: next.Count}
	}

	if current.Count == math.MaxUint64 {
		return counterReply{count: current.Count, err: fmt.Errorf("%s: %w: count at maximum", req.op, storage.ErrMalformedRecord)}
	}

	next := model.VisitorCount{Count: current.Count + 1}
	if err := m.store.Save(req.ctx, next); err != nil {
		return counterReply{count: current.Count, err: fmt.Errorf("%s: save: %w", req.op, err)}
	}

	m.log.DebugFunc(func() (string, []any) {
		return "visitor count incremented", []any{"count", next.Count}
	})
	return counterReply{count: next.Count}
}
