package commit

import (
	"errors"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
)

// issue sends cmd, waits for its completion and traces both.
// Caller holds hwMu.
func (c *Coordinator) issue(cmd controller.Command) (controller.Status, error) {
	c.traceCommand(log.DirectionOut, log.CategoryCommand, cmd, "")
	status, err := c.dispatcher.Do(cmd)
	c.traceCommand(log.DirectionIn, log.CategoryCompletion, cmd, status.String())
	if err != nil {
		c.debugLog("command failed", "cmd", cmd.String(), "status", status, "error", err)
	}
	return status, err
}

// tracingIssuer routes AID table commands through issue.
type tracingIssuer struct {
	c *Coordinator
}

func (t tracingIssuer) Do(cmd controller.Command) (controller.Status, error) {
	return t.c.issue(cmd)
}

func (c *Coordinator) traceCommand(dir log.Direction, cat log.Category, cmd controller.Command, status string) {
	if c.plog == nil {
		return
	}
	ev := &log.CommandEvent{
		Op:     cmd.Op.String(),
		Detail: cmd.String(),
		Status: status,
	}
	switch cmd.Op {
	case controller.OpUpdateNow, controller.OpClearRouting, controller.OpSetHostListenTech,
		controller.OpDiscoverRequest, controller.OpRemoveAid:
	default:
		d := uint8(cmd.Dest)
		ev.Dest = &d
	}
	if dir == log.DirectionOut {
		if payload, err := log.EncodePayload(cmd); err == nil {
			ev.Payload = payload
		}
	}
	c.plog.Log(log.Event{
		Timestamp: c.clock.Now(),
		CycleID:   c.cycle,
		Direction: dir,
		Layer:     log.LayerController,
		Category:  cat,
		Command:   ev,
	})
}

// traceCommit records a commit outcome. Caller holds hwMu.
func (c *Coordinator) traceCommit(outcome Outcome, reason string) {
	if c.plog == nil {
		return
	}
	c.plog.Log(log.Event{
		Timestamp:   c.clock.Now(),
		CycleID:     c.cycle,
		Layer:       log.LayerCoordinator,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{Entity: log.StateEntityCommit, NewState: outcome.String(), Reason: reason},
	})
}

func (c *Coordinator) traceState(entity log.StateEntity, oldState, newState, reason string) {
	if c.plog == nil {
		return
	}
	c.plog.Log(log.Event{
		Timestamp:   c.clock.Now(),
		Layer:       log.LayerCoordinator,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{Entity: entity, OldState: oldState, NewState: newState, Reason: reason},
	})
}

func (c *Coordinator) traceError(layer log.Layer, err error, context string) {
	if c.plog == nil {
		return
	}
	data := &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context}
	var se *controller.StatusError
	if errors.As(err, &se) {
		code := int(se.Status)
		data.Code = &code
	}
	c.plog.Log(log.Event{
		Timestamp: c.clock.Now(),
		Layer:     layer,
		Category:  log.CategoryError,
		Error:     data,
	})
}
