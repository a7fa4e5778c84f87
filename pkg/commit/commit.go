package commit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// protocolRoutes are pushed in this order, before technology routes.
var protocolRoutes = []struct {
	cat   route.Category
	proto route.ProtocolMask
}{
	{route.CategoryIsoDep, route.ProtocolIsoDep},
	{route.CategoryT3T, route.ProtocolT3T},
}

var techRoutes = []struct {
	cat  route.Category
	tech route.TechMask
}{
	{route.CategoryTechA, route.TechA},
	{route.CategoryTechB, route.TechB},
	{route.CategoryTechF, route.TechF},
}

// Commit pushes the routing table to the controller if anything changed.
//
// When the state is Clean and no AID mutation is pending, nothing is sent
// and OutcomeUnchanged is returned. When discovery is disabled no routing
// command is sent and OutcomeDiscoveryStopped is returned. A failed command
// leaves the state Dirty and returns OutcomeFailed with the error.
func (c *Coordinator) Commit() (Outcome, error) {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()

	if c.isShutdown() {
		return OutcomeFailed, controller.ErrShutdown
	}

	start := c.clock.Now()
	c.cycle = uuid.NewString()
	defer func() { c.cycle = "" }()

	outcome, err := c.commit()

	c.metrics.RecordCommit(outcome.String(), c.clock.Since(start))
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	c.traceCommit(outcome, reason)
	if err != nil {
		c.warnLog("routing commit failed", "cycle", c.cycle, "error", err)
	} else {
		c.debugLog("routing commit", "cycle", c.cycle, "outcome", outcome)
	}
	return outcome, err
}

// commit runs one commit cycle. Caller holds hwMu.
func (c *Coordinator) commit() (Outcome, error) {
	mute := c.gate.Bitmap()
	if mute.DiscoveryDisabled() {
		return OutcomeDiscoveryStopped, nil
	}

	// AID mutations only happen under hwMu, which the caller holds.
	aidsPending := c.aids.Pending()

	// The state is read and moved to Committing in one critical section so
	// that a concurrent markDirty is never overwritten.
	c.stateMu.Lock()
	state := c.state
	if state == StateDirty || (state == StateClean && aidsPending) {
		c.state = StateCommitting
	}
	c.stateMu.Unlock()

	var reason string
	switch {
	case state == StateDirty:
		reason = "commit"
	case state == StateClean && aidsPending:
		reason = "aid table"
	default:
		return OutcomeUnchanged, nil
	}
	c.metrics.SetRoutingState(int(StateCommitting))
	c.traceState(log.StateEntityRouting, state.String(), StateCommitting.String(), reason)

	if state == StateDirty {
		return c.rebuild(mute)
	}
	return c.activateAids(mute)
}

// rebuild clears and re-pushes every route, then activates the table.
func (c *Coordinator) rebuild(mute route.MuteBitmap) (Outcome, error) {
	snap := c.cache.Current()
	table := c.resolver.ResolveTable(c.prefs, snap, mute)
	sc := table.Resolved(route.CategorySystemCode)

	// System-code routing survives the clear when it is unchanged.
	keepSC := c.scInstalled && c.scSupported && sc == c.scRoute
	clear := controller.ClearAll
	if keepSC {
		clear &^= controller.ClearSystemCode
	}
	if _, err := c.issue(controller.Command{Op: controller.OpClearRouting, Clear: clear}); err != nil {
		return c.fail(err)
	}
	if !keepSC {
		c.scInstalled = false
	}

	for _, p := range protocolRoutes {
		dest := table.Resolved(p.cat)
		if dest.IsUnrouted() {
			continue
		}
		cmd := controller.Command{
			Op:       controller.OpSetProtocolRoute,
			Protocol: p.proto,
			Dest:     dest,
			Power:    c.aids.EffectivePower(dest, 0),
		}
		if _, err := c.issue(cmd); err != nil {
			return c.fail(err)
		}
	}

	for _, t := range techRoutes {
		dest := table.Resolved(t.cat)
		if dest.IsUnrouted() {
			continue
		}
		cmd := controller.Command{
			Op:    controller.OpSetTechRoute,
			Tech:  t.tech,
			Dest:  dest,
			Power: c.aids.EffectivePower(dest, 0),
		}
		if _, err := c.issue(cmd); err != nil {
			return c.fail(err)
		}
	}

	listen := c.gate.HostListenTech()
	if _, err := c.issue(controller.Command{Op: controller.OpSetHostListenTech, Tech: listen}); err != nil {
		return c.fail(err)
	}

	if err := c.syncDefaultAid(table.Resolved(route.CategoryAID)); err != nil {
		return c.fail(err)
	}

	if !keepSC {
		if err := c.pushSystemCode(sc); err != nil {
			return c.fail(err)
		}
	}

	if _, err := c.issue(controller.Command{Op: controller.OpUpdateNow}); err != nil {
		return c.fail(err)
	}

	c.aids.BeginCycle()
	c.finishCommit(table)
	return OutcomeCommitted, nil
}

// activateAids handles a Clean state with pending AID mutations: only the
// default AID entry is checked before activation. The caller has already
// moved the state to Committing.
func (c *Coordinator) activateAids(mute route.MuteBitmap) (Outcome, error) {
	wanted := c.prefs.Effective(route.CategoryAID)
	dest := c.resolver.Resolve(route.CategoryAID, wanted, c.cache.Current(), mute)
	if err := c.syncDefaultAid(dest); err != nil {
		return c.fail(err)
	}
	if _, err := c.issue(controller.Command{Op: controller.OpUpdateNow}); err != nil {
		return c.fail(err)
	}

	c.aids.BeginCycle()
	c.finishCommit(c.Table())
	return OutcomeCommitted, nil
}

// syncDefaultAid makes the default AID entry point at dest, unless a caller
// registered one in this cycle.
func (c *Coordinator) syncDefaultAid(dest route.Destination) error {
	if c.aids.CallerDefault() {
		return nil
	}

	current, ok := c.aids.Default()
	if dest.IsUnrouted() {
		if ok {
			return c.aids.Remove(nil)
		}
		return nil
	}
	if ok && current.Dest == dest && current.Power == c.aids.EffectivePower(dest, 0) {
		return nil
	}
	return c.aids.InstallDefault(dest, 0)
}

// pushSystemCode installs the system-code route. NOT_SUPPORTED disables
// system-code routing for the life of the coordinator.
func (c *Coordinator) pushSystemCode(dest route.Destination) error {
	if !c.scSupported || dest.IsUnrouted() {
		return nil
	}

	_, err := c.issue(controller.Command{Op: controller.OpAddSystemCode, SystemCode: c.systemCode, Dest: dest})
	if errors.Is(err, controller.ErrNotSupported) {
		c.scSupported = false
		c.warnLog("system code routing not supported, disabling")
		return nil
	}
	if err != nil {
		return err
	}
	c.scInstalled = true
	c.scRoute = dest
	return nil
}

// fail moves the state to Dirty after a failed command.
func (c *Coordinator) fail(err error) (Outcome, error) {
	c.traceError(log.LayerCoordinator, err, "commit")
	c.setState(StateDirty, "command failed")
	return OutcomeFailed, fmt.Errorf("commit routing: %w", err)
}
