package controller

import (
	"sync"
	"time"
)

// Pending is the handle of an issued command. It resolves exactly once:
// with the controller's completion, or with ErrShutdown.
type Pending struct {
	cmd  Command
	d    *Dispatcher
	done chan struct{}
	once sync.Once

	status Status
	err    error

	// abandoned is set by the dispatcher, under its lock, on timeout.
	abandoned bool
}

func newPending(d *Dispatcher, cmd Command) *Pending {
	return &Pending{cmd: cmd, d: d, done: make(chan struct{})}
}

// Command returns the issued command.
func (p *Pending) Command() Command {
	return p.cmd
}

// Done is closed when the handle resolves.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the completion arrives or the dispatcher shuts down.
// The returned error is nil only for StatusOK.
func (p *Pending) Wait() (Status, error) {
	<-p.done
	return p.status, p.err
}

// WaitTimeout is Wait bounded by d. On timeout the handle is abandoned and
// ErrTimeout is returned. The completion the controller still owes for it is
// discarded when it arrives, so it cannot resolve a later command of the
// same kind.
func (p *Pending) WaitTimeout(d time.Duration) (Status, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.done:
		return p.status, p.err
	case <-timer.C:
	}

	if p.d.abandon(p) {
		p.resolve(StatusFailed, ErrTimeout)
	}
	<-p.done
	return p.status, p.err
}

func (p *Pending) resolve(status Status, err error) {
	p.once.Do(func() {
		p.status = status
		p.err = err
		close(p.done)
	})
}

// CompletionFunc observes every resolved command.
type CompletionFunc func(cmd Command, status Status, err error)

// Dispatcher issues commands and correlates completions to them.
// It is safe for concurrent use.
type Dispatcher struct {
	mu        sync.Mutex
	transport Transport
	pending   map[OpKind][]*Pending
	closed    bool

	onComplete CompletionFunc
}

// NewDispatcher creates a dispatcher sending through t.
func NewDispatcher(t Transport) *Dispatcher {
	return &Dispatcher{
		transport: t,
		pending:   make(map[OpKind][]*Pending),
	}
}

// OnComplete sets a callback invoked after each command resolves.
// It runs on the goroutine that resolved the command.
func (d *Dispatcher) OnComplete(fn CompletionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onComplete = fn
}

// Issue sends cmd and returns its handle. The handle is registered before
// the transport sees the command, so an immediate completion is not lost.
func (d *Dispatcher) Issue(cmd Command) (*Pending, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrShutdown
	}
	if d.transport == nil {
		d.mu.Unlock()
		return nil, ErrNoTransport
	}
	p := newPending(d, cmd)
	d.pending[cmd.Op] = append(d.pending[cmd.Op], p)
	transport := d.transport
	d.mu.Unlock()

	if err := transport.Send(cmd); err != nil {
		d.withdraw(p)
		p.resolve(StatusFailed, err)
		d.notify(cmd, StatusFailed, err)
		return nil, err
	}
	return p, nil
}

// Do issues cmd and waits for its completion without a timeout.
func (d *Dispatcher) Do(cmd Command) (Status, error) {
	p, err := d.Issue(cmd)
	if err != nil {
		return StatusFailed, err
	}
	return p.Wait()
}

// Deliver resolves the oldest outstanding command of ev.Op. A completion
// owed to a timed-out command is consumed without effect. It reports false
// when no waiting command was resolved.
func (d *Dispatcher) Deliver(ev Event) bool {
	d.mu.Lock()
	queue := d.pending[ev.Op]
	if len(queue) == 0 {
		d.mu.Unlock()
		return false
	}
	p := queue[0]
	queue[0] = nil
	d.pending[ev.Op] = queue[1:]
	abandoned := p.abandoned
	d.mu.Unlock()

	if abandoned {
		return false
	}

	err := ev.Status.Err(ev.Op)
	p.resolve(ev.Status, err)
	d.notify(p.cmd, ev.Status, err)
	return true
}

// Outstanding returns the number of unresolved commands.
func (d *Dispatcher) Outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, q := range d.pending {
		for _, p := range q {
			if !p.abandoned {
				n++
			}
		}
	}
	return n
}

// Shutdown resolves every outstanding command with ErrShutdown and rejects
// further commands. It is safe to call more than once.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	var all []*Pending
	for op, q := range d.pending {
		for _, p := range q {
			if !p.abandoned {
				all = append(all, p)
			}
		}
		delete(d.pending, op)
	}
	d.mu.Unlock()

	for _, p := range all {
		p.resolve(StatusFailed, ErrShutdown)
		d.notify(p.cmd, StatusFailed, ErrShutdown)
	}
}

// abandon marks p as timed out. It keeps its place in the queue so that the
// completion still owed for it is matched and dropped.
func (d *Dispatcher) abandon(p *Pending) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, q := range d.pending[p.cmd.Op] {
		if q == p && !p.abandoned {
			p.abandoned = true
			return true
		}
	}
	return false
}

// withdraw removes p from its queue, reporting whether it was still queued.
func (d *Dispatcher) withdraw(p *Pending) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := d.pending[p.cmd.Op]
	for i, q := range queue {
		if q == p {
			d.pending[p.cmd.Op] = append(queue[:i:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Dispatcher) notify(cmd Command, status Status, err error) {
	d.mu.Lock()
	fn := d.onComplete
	d.mu.Unlock()

	if fn != nil {
		fn(cmd, status, err)
	}
}
