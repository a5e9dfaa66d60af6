package attempt

import (
	"context"
	"sync"
)

// scope owns the goroutines bound to one phase. stop cancels them and waits
// until every one has returned.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newScope(parent context.Context) *scope {
	ctx, cancel := context.WithCancel(parent)
	return &scope{ctx: ctx, cancel: cancel}
}

func (s *scope) Go(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// stop is safe on a nil scope.
func (s *scope) stop() {
	if s == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}
