package commit

import (
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/internal/ctrlsim"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

const (
	uiccID route.Destination = 0x81
	eseID  route.Destination = 0x82
)

// uicc advertises ISO-DEP on A/B and T3T on F.
var uicc = capability.EEInfo{
	ID:    uiccID,
	TechA: route.ProtocolIsoDep,
	TechB: route.ProtocolIsoDep,
	TechF: route.ProtocolT3T,
}

var ese = capability.EEInfo{
	ID:    eseID,
	TechA: route.ProtocolIsoDep,
	TechF: route.ProtocolT3T,
}

type harness struct {
	sim   *ctrlsim.Controller
	disp  *controller.Dispatcher
	dir   *ctrlsim.Directory
	clock *clock.Mock
	trace *recordingLogger
	c     *Coordinator
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()

	sim := ctrlsim.New()
	disp := controller.NewDispatcher(sim)
	sim.Bind(disp)
	dir := ctrlsim.NewDirectory(disp)
	mock := clock.NewMock()
	trace := &recordingLogger{}

	cfg := Config{
		Dispatcher:     disp,
		Directory:      dir,
		Clock:          mock,
		ProtocolLogger: trace,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)
	sim.OnNotify(c.OnCapabilityNotification)

	t.Cleanup(func() {
		c.Shutdown()
		sim.Close()
	})
	return &harness{sim: sim, disp: disp, dir: dir, clock: mock, trace: trace, c: c}
}

// ready applies snapshot ees and commits it, then forgets the commands sent.
func (h *harness) ready(t *testing.T, ees ...capability.EEInfo) {
	t.Helper()
	h.c.OnCapabilityNotification(capability.NewSnapshot(ees...))
	outcome, err := h.c.Commit()
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)
	h.sim.Reset()
	h.trace.reset()
}

func (h *harness) commit(t *testing.T) Outcome {
	t.Helper()
	outcome, err := h.c.Commit()
	require.NoError(t, err)
	return outcome
}

// recordingLogger keeps every trace event.
type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(ev log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingLogger) all() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}

func (r *recordingLogger) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// actions returns the notification actions traced so far.
func (r *recordingLogger) actions() []log.NotificationAction {
	var out []log.NotificationAction
	for _, ev := range r.all() {
		if ev.Notification != nil {
			out = append(out, ev.Notification.Action)
		}
	}
	return out
}

func countOps(cmds []controller.Command, op controller.OpKind) int {
	n := 0
	for _, cmd := range cmds {
		if cmd.Op == op {
			n++
		}
	}
	return n
}
