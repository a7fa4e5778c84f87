package commit

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/aidtable"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/metrics"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/mute"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/preference"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/resolver"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// Coordinator owns the routing table of one controller.
type Coordinator struct {
	dispatcher *controller.Dispatcher
	directory  resolver.Directory
	resolver   *resolver.Resolver
	prefs      *preference.Store
	cache      *capability.Cache
	gate       *mute.Gate
	aids       *aidtable.Manager

	systemCode uint16
	delay      time.Duration
	clock      clock.Clock
	logger     *slog.Logger
	plog       log.Logger
	metrics    *metrics.Metrics

	// hwMu serializes hardware-facing operations.
	hwMu sync.Mutex

	// Guarded by hwMu.
	cycle       string
	scSupported bool
	scInstalled bool
	scRoute     route.Destination

	// stateMu guards the routing state and the last committed table.
	stateMu sync.Mutex
	state   State
	table   route.Table

	// Owned by the event loop goroutine.
	buffered *capability.Snapshot
	timer    *clock.Timer
	seq      uint64

	mailbox  chan func()
	stopped  chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

// New creates a coordinator and starts its event loop. The initial state is
// Clean; the first capability notification marks it Dirty.
func New(cfg Config) (*Coordinator, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		dispatcher:  cfg.Dispatcher,
		directory:   cfg.Directory,
		resolver:    resolver.New(cfg.Directory, cfg.Classifier),
		prefs:       preference.NewStore(cfg.Defaults),
		cache:       capability.NewCache(),
		gate:        mute.NewGate(),
		systemCode:  cfg.SystemCode,
		delay:       cfg.DebounceDelay,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		plog:        cfg.ProtocolLogger,
		metrics:     cfg.Metrics,
		scSupported: true,
		state:       StateClean,
		table:       route.NewTable(),
		mailbox:     make(chan func()),
		stopped:     make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	c.aids = aidtable.NewManager(tracingIssuer{c}, cfg.PowerPolicy, cfg.Logger)

	// Initial overrides do not force a commit before the snapshot is known.
	for cat, o := range cfg.Overrides {
		c.prefs.SetOverride(cat, o)
	}

	c.dispatcher.OnComplete(func(cmd controller.Command, status controller.Status, err error) {
		c.metrics.RecordCommand(cmd.Op.String(), status.String())
	})
	c.metrics.SetRoutingState(int(StateClean))

	go c.run()

	c.debugLog("coordinator started",
		"system_code", fmt.Sprintf("0x%04X", c.systemCode),
		"debounce", c.delay)
	return c, nil
}

// SetOverride sets or clears (route.Unset) the override of category cat.
// It marks the state Dirty when the effective destination changes.
func (c *Coordinator) SetOverride(cat route.Category, o route.Override) error {
	if !cat.Valid() {
		return fmt.Errorf("%w: %d", route.ErrUnknownCategory, cat)
	}
	if c.prefs.SetOverride(cat, o) {
		c.markDirty("override " + cat.String() + "=" + o.String())
	}
	return nil
}

// Override returns the override of category cat.
func (c *Coordinator) Override(cat route.Category) route.Override {
	return c.prefs.Override(cat)
}

// SetMuteTechnology replaces the mute bitmap.
func (c *Coordinator) SetMuteTechnology(b route.MuteBitmap) {
	old := c.gate.Set(b)
	if old == b {
		return
	}
	c.traceState(log.StateEntityMute, old.String(), b.String(), "")
	c.markDirty("mute " + b.String())
}

// SetNfcSecure enables or disables NFC secure mode, which restricts the
// power states of host routes.
func (c *Coordinator) SetNfcSecure(on bool) {
	if !c.aids.SetSecure(on) {
		return
	}
	c.traceState(log.StateEntitySecure, fmt.Sprint(!on), fmt.Sprint(on), "")
	c.markDirty(fmt.Sprintf("secure=%t", on))
}

// AddAidRouting registers an AID entry. A zero-length aid registers the
// default AID entry for the current commit cycle. The entry is active after
// the next Commit.
func (c *Coordinator) AddAidRouting(aid []byte, dest route.Destination, match route.MatchQualifier, power route.PowerState) error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	return c.aids.Add(aid, dest, match, power)
}

// RemoveAidRouting removes an AID entry.
func (c *Coordinator) RemoveAidRouting(aid []byte) error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	return c.aids.Remove(aid)
}

// ClearAidTable removes every AID entry. The next Commit regenerates the
// default entry.
func (c *Coordinator) ClearAidTable() error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	return c.aids.ClearAll()
}

// AidEntries returns the AID entries accepted by the controller.
func (c *Coordinator) AidEntries() []aidtable.Entry {
	return c.aids.Entries()
}

// Discover asks the controller to report execution environment
// capabilities. The report arrives through OnCapabilityNotification.
func (c *Coordinator) Discover() error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	_, err := c.issue(controller.Command{Op: controller.OpDiscoverRequest})
	return err
}

// EnableExecutionEnvironment enables or disables an execution environment
// through the directory. A timeout leaves the routing state untouched.
func (c *Coordinator) EnableExecutionEnvironment(id route.Destination, on bool) error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()

	if err := c.directory.Enable(id, on); err != nil {
		c.traceError(log.LayerController, err, "enable "+id.String())
		c.warnLog("execution environment enable failed", "id", id, "on", on, "error", err)
		return fmt.Errorf("enable %s: %w", id, err)
	}
	c.traceState(log.StateEntityEE, id.String(), fmt.Sprintf("enabled=%t", on), "")
	return nil
}

// ForceRouting routes all listen-mode traffic to dest until
// ClearForceRouting. The routing table itself is left unchanged.
func (c *Coordinator) ForceRouting(dest route.Destination) error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	_, err := c.issue(controller.Command{Op: controller.OpForceRouting, Dest: dest, Enable: true})
	return err
}

// ClearForceRouting releases a previous ForceRouting.
func (c *Coordinator) ClearForceRouting() error {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	_, err := c.issue(controller.Command{Op: controller.OpForceRouting})
	return err
}

// State returns the routing state.
func (c *Coordinator) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Table returns the table pushed by the last successful commit.
func (c *Coordinator) Table() route.Table {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.table
}

// Preview resolves the table the next commit would push.
func (c *Coordinator) Preview() route.Table {
	return c.resolver.ResolveTable(c.prefs, c.cache.Current(), c.gate.Bitmap())
}

// Capabilities returns the current capability snapshot.
func (c *Coordinator) Capabilities() capability.Snapshot {
	return c.cache.Current()
}

// Mute returns the mute bitmap.
func (c *Coordinator) Mute() route.MuteBitmap {
	return c.gate.Bitmap()
}

// SystemCodeSupported reports whether system-code routing is still
// attempted. It turns false once the controller reported NOT_SUPPORTED.
func (c *Coordinator) SystemCodeSupported() bool {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	return c.scSupported
}

// Dump writes a human-readable summary of the routing state to w.
func (c *Coordinator) Dump(w io.Writer) error {
	c.hwMu.Lock()
	scSupported := c.scSupported
	c.hwMu.Unlock()

	table := c.Table()
	if _, err := fmt.Fprintf(w, "state:        %s\nmute:         %s\nsecure:       %t\nsystem code:  0x%04X (supported=%t)\ncapabilities: %s\n",
		c.State(), c.gate.Bitmap(), c.aids.Secure(), c.systemCode, scSupported, c.cache.Current()); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "table:\n"); err != nil {
		return err
	}
	if _, err := table.WriteTo(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "aids:\n"); err != nil {
		return err
	}
	for _, e := range c.aids.Entries() {
		if _, err := fmt.Fprintf(w, "  %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown releases every pending controller wait with
// controller.ErrShutdown and stops the event loop and the debounce timer.
// It does not wait for an in-flight commit. Safe to call more than once.
func (c *Coordinator) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stopped)
		<-c.loopDone

		if c.timer != nil {
			c.timer.Stop()
		}
		c.buffered = nil

		c.dispatcher.Shutdown()
		c.debugLog("coordinator shut down")
	})
}

func (c *Coordinator) isShutdown() bool {
	select {
	case <-c.stopped:
		return true
	default:
		return false
	}
}

// markDirty moves the state to Dirty.
func (c *Coordinator) markDirty(reason string) {
	c.setState(StateDirty, reason)
}

func (c *Coordinator) setState(s State, reason string) {
	c.stateMu.Lock()
	old := c.state
	c.state = s
	c.stateMu.Unlock()

	if old == s {
		return
	}
	c.metrics.SetRoutingState(int(s))
	c.traceState(log.StateEntityRouting, old.String(), s.String(), reason)
	c.debugLog("routing state", "from", old, "to", s, "reason", reason)
}

// finishCommit moves Committing to Clean. A change observed during the
// commit has already moved the state to Dirty, which is kept.
func (c *Coordinator) finishCommit(table route.Table) {
	c.stateMu.Lock()
	c.table = table
	old := c.state
	if old == StateCommitting {
		c.state = StateClean
	}
	s := c.state
	c.stateMu.Unlock()

	if old != s {
		c.metrics.SetRoutingState(int(s))
		c.traceState(log.StateEntityRouting, old.String(), s.String(), "committed")
	}
}

func (c *Coordinator) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Coordinator) warnLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
