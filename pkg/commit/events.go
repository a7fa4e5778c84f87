package commit

import (
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// run is the event loop. Notifications and debounce expiries execute here
// one at a time.
func (c *Coordinator) run() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.mailbox:
			fn()
		case <-c.stopped:
			return
		}
	}
}

// post hands fn to the event loop. It reports false after Shutdown.
func (c *Coordinator) post(fn func()) bool {
	select {
	case c.mailbox <- fn:
		return true
	case <-c.stopped:
		return false
	}
}

// OnCapabilityNotification delivers a capability snapshot reported by the
// controller. It returns once the snapshot has been applied or buffered.
func (c *Coordinator) OnCapabilityNotification(snap capability.Snapshot) {
	done := make(chan struct{})
	if !c.post(func() {
		c.handleNotification(snap)
		close(done)
	}) {
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

// handleNotification runs on the event loop.
func (c *Coordinator) handleNotification(snap capability.Snapshot) {
	if c.buffered != nil {
		c.stopTimer()
		c.traceNotification(*c.buffered, log.ActionSuperseded, nil)
		c.buffered = nil
	}

	dropped := capability.TechDrops(c.cache.Current(), snap)
	if len(dropped) > 0 && c.delay > 0 {
		c.buffered = &snap
		c.seq++
		seq := c.seq
		c.timer = c.clock.AfterFunc(c.delay, func() {
			c.post(func() { c.expire(seq) })
		})
		c.metrics.RecordSnapshotDebounced()
		c.traceNotification(snap, log.ActionDebounced, dropped)
		c.debugLog("capability notification debounced", "dropped", dropped, "delay", c.delay)
		return
	}

	c.apply(snap, log.ActionApplied)
}

// expire applies the buffered snapshot if no notification superseded it.
func (c *Coordinator) expire(seq uint64) {
	if c.buffered == nil || seq != c.seq {
		return
	}
	snap := *c.buffered
	c.buffered = nil
	c.timer = nil
	c.apply(snap, log.ActionExpired)
}

func (c *Coordinator) apply(snap capability.Snapshot, action log.NotificationAction) {
	if !c.cache.Replace(snap) {
		c.traceNotification(snap, log.ActionUnchanged, nil)
		return
	}
	c.metrics.RecordSnapshotApplied()
	c.traceNotification(snap, action, nil)
	c.debugLog("capability snapshot applied", "snapshot", snap.String())
	c.markDirty("capabilities")
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.seq++
}

func (c *Coordinator) traceNotification(snap capability.Snapshot, action log.NotificationAction, dropped []route.Destination) {
	if c.plog == nil {
		return
	}
	ev := &log.NotificationEvent{Action: action}
	for _, ee := range snap.EEs() {
		ev.EEs = append(ev.EEs, log.EEState{
			ID:    uint8(ee.ID),
			TechA: uint8(ee.TechA),
			TechB: uint8(ee.TechB),
			TechF: uint8(ee.TechF),
		})
	}
	for _, id := range dropped {
		ev.Dropped = append(ev.Dropped, uint8(id))
	}
	c.plog.Log(log.Event{
		Timestamp:    c.clock.Now(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerCapability,
		Category:     log.CategoryNotification,
		Notification: ev,
	})
}
