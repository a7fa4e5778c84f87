package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/aidtable"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/commit"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint16(0xFEFE), cfg.SystemCode)
	assert.Equal(t, commit.DefaultDebounceDelay, cfg.Debounce)
	assert.Equal(t, route.ClassUICC, cfg.Classifier().Classify(0x81))
	assert.Equal(t, route.ClassESE, cfg.Classifier().Classify(0x82))
}

func TestParse(t *testing.T) {
	data := []byte(`
defaults:
  iso-dep: "0x82"
  felica: unrouted
overrides:
  mifare: "0x81"
system_code: 0x12FC
default_power: 0x11
offhost_power: 0x3B
debounce: 80ms
uicc_ids: [0x81]
ese_ids: [0x82, 0x86]
log_level: debug
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x12FC), cfg.SystemCode)
	assert.Equal(t, 80*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 500*time.Millisecond, cfg.ModeSetTimeout, "unset keys keep their defaults")
	assert.Equal(t, []uint8{0x82, 0x86}, cfg.ESEIDs)

	defaults, err := cfg.RouteDefaults()
	require.NoError(t, err)
	assert.Equal(t, route.Destination(0x82), defaults[route.CategoryIsoDep])
	assert.Equal(t, route.Unrouted, defaults[route.CategoryT3T])
	assert.Equal(t, route.Unrouted, defaults[route.CategoryTechF])
	assert.Equal(t, route.Host, defaults[route.CategoryAID])

	overrides, err := cfg.InitialOverrides()
	require.NoError(t, err)
	assert.Equal(t, map[route.Category]route.Override{route.CategoryTechA: route.To(0x81)}, overrides)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	assert.Equal(t, aidtable.PowerPolicy{HostPower: 0x11, OffHostPower: 0x3B}, cfg.PowerPolicy())
	assert.Equal(t, route.ClassOffHost, cfg.Classifier().Classify(0x83), "no longer listed as UICC")
}

func TestValidateAggregates(t *testing.T) {
	data := []byte(`
defaults:
  tech-z: host
overrides:
  aid: nowhere
system_code: 0
uicc_ids: [0x81, 0x00]
ese_ids: [0x81]
log_level: loud
`)
	_, err := Parse(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, route.ErrUnknownCategory)
	assert.ErrorIs(t, err, route.ErrInvalidDestination)
	assert.Len(t, multierr.Errors(err), 6)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("defaults: [unterminated"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debounce: 10ms\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, cfg.Debounce)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCoordinatorConfig(t *testing.T) {
	cfg, err := Parse([]byte("overrides:\n  felica: \"0x81\"\n"))
	require.NoError(t, err)

	cc, err := cfg.CoordinatorConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFEFE), cc.SystemCode)
	assert.Equal(t, commit.DefaultDebounceDelay, cc.DebounceDelay)
	assert.Equal(t, route.To(0x81), cc.Overrides[route.CategoryT3T])
	assert.Equal(t, route.To(0x81), cc.Overrides[route.CategoryTechF])
	assert.NotNil(t, cc.Classifier)
	assert.Len(t, cc.Defaults, len(route.AllCategories()))
}
