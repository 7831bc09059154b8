package session

import "sync"

// Cell is the process-wide holder of at most one live Context.
//
// The first access through any method runs the init function exactly once;
// that is where logging is set up and the initial Context is created. Reads
// share the lock, Take and Install hold it exclusively. Callbacks passed to
// Read must not sleep or call into the host.
type Cell struct {
	once sync.Once
	init func() Context

	mu  sync.RWMutex
	ctx Context
}

// NewCell returns a cell whose Context is built lazily by init. init may be
// nil, in which case the cell starts empty.
func NewCell(init func() Context) *Cell {
	return &Cell{init: init}
}

func (c *Cell) ensure() {
	c.once.Do(func() {
		if c.init == nil {
			return
		}
		ctx := c.init()
		c.mu.Lock()
		c.ctx = ctx
		c.mu.Unlock()
	})
}

// Read runs fn with the current Context under the shared lock and reports
// whether a Context was present. fn is not called when the cell is empty.
func (c *Cell) Read(fn func(Context)) bool {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ctx == nil {
		return false
	}
	fn(c.ctx)
	return true
}

// Present reports whether a Context is installed.
func (c *Cell) Present() bool {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx != nil
}

// Take removes and returns the current Context, or nil if the cell is
// already empty. Subsequent reads observe an empty cell until Install.
func (c *Cell) Take() Context {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx := c.ctx
	c.ctx = nil
	return ctx
}

// Install replaces the current Context with ctx and returns the displaced
// one, if any. The caller owns the returned Context and must close it.
func (c *Cell) Install(ctx Context) Context {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.ctx
	c.ctx = ctx
	return old
}
