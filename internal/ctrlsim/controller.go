// Package ctrlsim simulates an NFC controller for tests and the lmrt-sim
// shell. The simulated controller acknowledges every command on its own
// goroutine, in order, and keeps a model of the routing table the commands
// build.
package ctrlsim

import (
	"encoding/hex"
	"sort"
	"sync"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// HardwareTable is the routing table the controller holds.
type HardwareTable struct {
	Protocols   map[route.ProtocolMask]route.Destination
	Techs       map[route.TechMask]route.Destination
	ListenTech  route.TechMask
	AIDs        map[string]controller.Command
	SystemCodes map[uint16]route.Destination
}

func newHardwareTable() HardwareTable {
	return HardwareTable{
		Protocols:   make(map[route.ProtocolMask]route.Destination),
		Techs:       make(map[route.TechMask]route.Destination),
		AIDs:        make(map[string]controller.Command),
		SystemCodes: make(map[uint16]route.Destination),
	}
}

func (h HardwareTable) clone() HardwareTable {
	c := newHardwareTable()
	for k, v := range h.Protocols {
		c.Protocols[k] = v
	}
	for k, v := range h.Techs {
		c.Techs[k] = v
	}
	for k, v := range h.AIDs {
		c.AIDs[k] = v
	}
	for k, v := range h.SystemCodes {
		c.SystemCodes[k] = v
	}
	c.ListenTech = h.ListenTech
	return c
}

// AIDKeys returns the hex patterns of the AID entries, sorted.
func (h HardwareTable) AIDKeys() []string {
	keys := make([]string, 0, len(h.AIDs))
	for k := range h.AIDs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Controller is a simulated controller. It implements controller.Transport.
type Controller struct {
	// sendMu keeps completions in command order.
	sendMu sync.Mutex

	mu         sync.Mutex
	dispatcher *controller.Dispatcher
	sent       []controller.Command
	status     map[controller.OpKind]controller.Status
	failNext   map[controller.OpKind][]controller.Status
	drop       map[controller.OpKind]bool
	hold       bool
	held       []controller.Event

	staged  HardwareTable
	active  HardwareTable
	updates int
	forced  *route.Destination
	enabled map[route.Destination]bool

	ees      []capability.EEInfo
	onNotify func(capability.Snapshot)

	queue  chan controller.Event
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates a simulated controller and starts its completion goroutine.
func New() *Controller {
	c := &Controller{
		status:   make(map[controller.OpKind]controller.Status),
		failNext: make(map[controller.OpKind][]controller.Status),
		drop:     make(map[controller.OpKind]bool),
		staged:   newHardwareTable(),
		active:   newHardwareTable(),
		enabled:  make(map[route.Destination]bool),
		queue:    make(chan controller.Event, 256),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Bind sets the dispatcher completions are delivered to.
func (c *Controller) Bind(d *controller.Dispatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher = d
}

// OnNotify sets the capability notification sink used after a discover
// request or Notify.
func (c *Controller) OnNotify(fn func(capability.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotify = fn
}

// Close stops the completion goroutine. Completions still queued are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	c.wg.Wait()
}

// Send records cmd, applies it to the table model and schedules its completion.
func (c *Controller) Send(cmd controller.Command) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return controller.ErrShutdown
	}
	c.sent = append(c.sent, cmd)

	status := c.status[cmd.Op]
	if q := c.failNext[cmd.Op]; len(q) > 0 {
		status = q[0]
		c.failNext[cmd.Op] = q[1:]
	}
	if status == controller.StatusOK {
		c.apply(cmd)
	}

	ev := controller.Event{Op: cmd.Op, Status: status}
	deliver := false
	switch {
	case c.drop[cmd.Op]:
	case c.hold:
		c.held = append(c.held, ev)
	default:
		deliver = true
	}
	notify := cmd.Op == controller.OpDiscoverRequest && status == controller.StatusOK
	c.mu.Unlock()

	if deliver {
		select {
		case c.queue <- ev:
		case <-c.done:
			return controller.ErrShutdown
		}
	}
	if notify {
		go c.Notify()
	}
	return nil
}

// apply mutates the table model. Caller holds c.mu.
func (c *Controller) apply(cmd controller.Command) {
	switch cmd.Op {
	case controller.OpModeSet:
		c.enabled[cmd.Dest] = cmd.Enable
	case controller.OpClearRouting:
		if cmd.Clear&controller.ClearProtocol != 0 {
			c.staged.Protocols = make(map[route.ProtocolMask]route.Destination)
		}
		if cmd.Clear&controller.ClearTech != 0 {
			c.staged.Techs = make(map[route.TechMask]route.Destination)
		}
		if cmd.Clear&controller.ClearSystemCode != 0 {
			c.staged.SystemCodes = make(map[uint16]route.Destination)
		}
	case controller.OpSetProtocolRoute:
		c.staged.Protocols[cmd.Protocol] = cmd.Dest
	case controller.OpSetTechRoute:
		c.staged.Techs[cmd.Tech] = cmd.Dest
	case controller.OpSetHostListenTech:
		c.staged.ListenTech = cmd.Tech
	case controller.OpAddAid:
		c.staged.AIDs[hex.EncodeToString(cmd.AID)] = cmd
	case controller.OpRemoveAid:
		if cmd.All {
			c.staged.AIDs = make(map[string]controller.Command)
		} else {
			delete(c.staged.AIDs, hex.EncodeToString(cmd.AID))
		}
	case controller.OpAddSystemCode:
		c.staged.SystemCodes[cmd.SystemCode] = cmd.Dest
	case controller.OpRemoveSystemCode:
		delete(c.staged.SystemCodes, cmd.SystemCode)
	case controller.OpUpdateNow:
		c.active = c.staged.clone()
		c.updates++
	case controller.OpForceRouting:
		if cmd.Enable {
			d := cmd.Dest
			c.forced = &d
		} else {
			c.forced = nil
		}
	}
}

func (c *Controller) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.queue:
			c.mu.Lock()
			d := c.dispatcher
			c.mu.Unlock()
			if d != nil {
				d.Deliver(ev)
			}
		}
	}
}

// SetStatus makes every future command of op complete with status.
func (c *Controller) SetStatus(op controller.OpKind, status controller.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[op] = status
}

// FailNext makes the next command of op complete with status.
func (c *Controller) FailNext(op controller.OpKind, status controller.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext[op] = append(c.failNext[op], status)
}

// Drop makes commands of op never complete.
func (c *Controller) Drop(op controller.OpKind, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop[op] = on
}

// Hold queues completions until Release is called.
func (c *Controller) Hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hold = true
}

// Release delivers held completions in order and stops holding.
func (c *Controller) Release() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	held := c.held
	c.held = nil
	c.hold = false
	c.mu.Unlock()

	for _, ev := range held {
		select {
		case c.queue <- ev:
		case <-c.done:
			return
		}
	}
}

// HeldCount returns the number of held completions.
func (c *Controller) HeldCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.held)
}

// Sent returns every command received so far.
func (c *Controller) Sent() []controller.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]controller.Command(nil), c.sent...)
}

// SentOps returns the operation kinds of every command received so far.
func (c *Controller) SentOps() []controller.OpKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]controller.OpKind, len(c.sent))
	for i, cmd := range c.sent {
		ops[i] = cmd.Op
	}
	return ops
}

// Reset forgets the recorded commands. The table model is kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// Active returns the table activated by the last UPDATE_NOW.
func (c *Controller) Active() HardwareTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.clone()
}

// Staged returns the table built since the last UPDATE_NOW.
func (c *Controller) Staged() HardwareTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged.clone()
}

// Updates returns the number of UPDATE_NOW commands applied.
func (c *Controller) Updates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// Forced returns the forced destination, if routing is forced.
func (c *Controller) Forced() (route.Destination, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forced == nil {
		return 0, false
	}
	return *c.forced, true
}

// Enabled reports whether the execution environment id was enabled by MODE_SET.
func (c *Controller) Enabled(id route.Destination) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[id]
}

// SetEEs sets the execution environments reported by Notify.
func (c *Controller) SetEEs(ees ...capability.EEInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ees = append([]capability.EEInfo(nil), ees...)
}

// Notify reports the current execution environments to the notification sink.
func (c *Controller) Notify() {
	c.mu.Lock()
	fn := c.onNotify
	snap := capability.NewSnapshot(c.ees...)
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

var _ controller.Transport = (*Controller)(nil)
