package commit

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/aidtable"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/metrics"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/preference"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/resolver"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// Coordinator defaults.
const (
	// DefaultSystemCode is the wildcard Felica system code.
	DefaultSystemCode uint16 = 0xFEFE

	// DefaultDebounceDelay is how long a technology-drop notification is held.
	DefaultDebounceDelay = 50 * time.Millisecond
)

// ErrInvalidConfig is returned by New for an incomplete configuration.
var ErrInvalidConfig = errors.New("invalid coordinator configuration")

// Config configures a Coordinator.
type Config struct {
	// Dispatcher issues controller commands. Required.
	Dispatcher *controller.Dispatcher

	// Directory resolves logical destinations and enables execution
	// environments. Required.
	Directory resolver.Directory

	// Defaults are the compiled-in destinations. Nil selects
	// preference.DefaultRoutes.
	Defaults preference.Defaults

	// Overrides are applied at construction without marking the state Dirty.
	Overrides map[route.Category]route.Override

	// Classifier classifies execution environment ids. Nil selects
	// route.DefaultClassifier.
	Classifier *route.Classifier

	// PowerPolicy selects power states. The zero value selects
	// aidtable.DefaultPowerPolicy.
	PowerPolicy aidtable.PowerPolicy

	// SystemCode is the system code routed by system-code routing.
	// Zero selects DefaultSystemCode.
	SystemCode uint16

	// DebounceDelay is how long technology-drop notifications are held.
	// Zero selects DefaultDebounceDelay; negative disables debouncing.
	DebounceDelay time.Duration

	// Clock drives the debounce timer. Nil selects the wall clock.
	Clock clock.Clock

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives the routing trace. Nil disables tracing.
	ProtocolLogger log.Logger

	// Metrics records Prometheus metrics. Nil disables metrics.
	Metrics *metrics.Metrics
}

func (c *Config) applyDefaults() error {
	if c.Dispatcher == nil {
		return fmt.Errorf("%w: dispatcher is required", ErrInvalidConfig)
	}
	if c.Directory == nil {
		return fmt.Errorf("%w: directory is required", ErrInvalidConfig)
	}
	if c.Defaults == nil {
		c.Defaults = preference.DefaultRoutes()
	}
	if c.Classifier == nil {
		c.Classifier = route.DefaultClassifier()
	}
	if c.PowerPolicy == (aidtable.PowerPolicy{}) {
		c.PowerPolicy = aidtable.DefaultPowerPolicy()
	}
	if c.SystemCode == 0 {
		c.SystemCode = DefaultSystemCode
	}
	if c.DebounceDelay == 0 {
		c.DebounceDelay = DefaultDebounceDelay
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return nil
}
