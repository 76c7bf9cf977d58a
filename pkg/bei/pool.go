package bei

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Pool keeps a fixed number of initialized engine processes. Each engine
// serves one query at a time; a dead or discarded engine is replaced the
// next time its slot is acquired.
type Pool struct {
	path    string
	args    []string
	options map[string]string
	slots   chan *Engine
	size    int
}

// NewPool starts size engines and waits for each handshake.
func NewPool(ctx context.Context, size int, options map[string]string, path string, args ...string) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		path:    path,
		args:    args,
		options: options,
		slots:   make(chan *Engine, size),
		size:    size,
	}
	for i := 0; i < size; i++ {
		eng, err := p.spawn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("bei: start pool engine %d: %w", i, err)
		}
		p.slots <- eng
	}
	return p, nil
}

// Size returns the number of engine slots.
func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until an engine slot is free. A slot whose engine has
// exited or was discarded gets a freshly started engine.
func (p *Pool) Acquire(ctx context.Context) (*Engine, error) {
	select {
	case eng := <-p.slots:
		if eng != nil && eng.Alive() {
			return eng, nil
		}
		if eng != nil {
			eng.Close()
		}
		fresh, err := p.spawn(ctx)
		if err != nil {
			p.slots <- nil
			return nil, fmt.Errorf("bei: replace engine: %w", err)
		}
		log.Info().Str("engine", p.path).Msg("bei: replaced dead engine")
		return fresh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a healthy engine to the pool.
func (p *Pool) Release(eng *Engine) {
	p.slots <- eng
}

// Discard closes an engine whose protocol state is unknown (for example
// after a failed stop) and frees its slot for a replacement.
func (p *Pool) Discard(eng *Engine) {
	if eng != nil {
		eng.Close()
	}
	p.slots <- nil
}

// Close shuts down every idle engine. Call it after all holders have
// released their engines.
func (p *Pool) Close() {
	for {
		select {
		case eng := <-p.slots:
			if eng != nil {
				eng.Close()
			}
		default:
			return
		}
	}
}

func (p *Pool) spawn(ctx context.Context) (*Engine, error) {
	eng := NewEngine(p.path, p.args...)
	if err := eng.Init(ctx); err != nil {
		return nil, err
	}
	if len(p.options) > 0 {
		for name, value := range p.options {
			eng.SetOption(name, value)
		}
		if err := eng.IsReady(ctx); err != nil {
			eng.Close()
			return nil, err
		}
	}
	return eng, nil
}
