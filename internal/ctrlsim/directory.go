package ctrlsim

import (
	"fmt"
	"sync"
	"time"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/resolver"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// ModeSetTimeout bounds the wait for a MODE_SET completion.
const ModeSetTimeout = 500 * time.Millisecond

// Directory is a simulated secure element directory. Logical ids map to
// themselves unless remapped with Connect.
type Directory struct {
	dispatcher *controller.Dispatcher
	timeout    time.Duration

	mu        sync.Mutex
	connected map[route.Destination]route.Destination
	felica    bool
}

// NewDirectory creates a directory enabling execution environments through d.
func NewDirectory(d *controller.Dispatcher) *Directory {
	return &Directory{
		dispatcher: d,
		timeout:    ModeSetTimeout,
		connected:  make(map[route.Destination]route.Destination),
	}
}

// SetTimeout overrides ModeSetTimeout.
func (d *Directory) SetTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
}

// Connect maps a logical id to the id of the connected environment.
// Mapping to route.Host simulates a disconnected environment.
func (d *Directory) Connect(logical, actual route.Destination) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected[logical] = actual
}

// SetFelicaCard sets whether a Felica-capable card is present in the eSE.
func (d *Directory) SetFelicaCard(present bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.felica = present
}

// ResolveConnectedID implements resolver.Directory.
func (d *Directory) ResolveConnectedID(id route.Destination) route.Destination {
	d.mu.Lock()
	defer d.mu.Unlock()
	if actual, ok := d.connected[id]; ok {
		return actual
	}
	return id
}

// IsFelicaCapableCardPresent implements resolver.Directory.
func (d *Directory) IsFelicaCapableCardPresent() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.felica
}

// Enable issues MODE_SET for id and waits at most the configured timeout.
func (d *Directory) Enable(id route.Destination, on bool) error {
	d.mu.Lock()
	timeout := d.timeout
	d.mu.Unlock()

	p, err := d.dispatcher.Issue(controller.Command{Op: controller.OpModeSet, Dest: id, Enable: on})
	if err != nil {
		return fmt.Errorf("mode set %s: %w", id, err)
	}
	if _, err := p.WaitTimeout(timeout); err != nil {
		return fmt.Errorf("mode set %s: %w", id, err)
	}
	return nil
}

var _ resolver.Directory = (*Directory)(nil)
