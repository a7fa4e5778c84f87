package ctrlsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

func newBound(t *testing.T) (*Controller, *controller.Dispatcher) {
	t.Helper()
	c := New()
	d := controller.NewDispatcher(c)
	c.Bind(d)
	t.Cleanup(func() {
		d.Shutdown()
		c.Close()
	})
	return c, d
}

func TestControllerAcknowledgesInOrder(t *testing.T) {
	c, d := newBound(t)

	for _, cmd := range []controller.Command{
		{Op: controller.OpClearRouting, Clear: controller.ClearAll},
		{Op: controller.OpSetTechRoute, Tech: route.TechA, Dest: 0x81},
		{Op: controller.OpSetProtocolRoute, Protocol: route.ProtocolIsoDep, Dest: route.Host},
		{Op: controller.OpAddAid, AID: []byte{0xA0, 0x01}, Dest: 0x82},
		{Op: controller.OpUpdateNow},
	} {
		_, err := d.Do(cmd)
		require.NoError(t, err, cmd.String())
	}

	assert.Equal(t, []controller.OpKind{
		controller.OpClearRouting,
		controller.OpSetTechRoute,
		controller.OpSetProtocolRoute,
		controller.OpAddAid,
		controller.OpUpdateNow,
	}, c.SentOps())

	active := c.Active()
	assert.Equal(t, route.Destination(0x81), active.Techs[route.TechA])
	assert.Equal(t, route.Host, active.Protocols[route.ProtocolIsoDep])
	assert.Equal(t, []string{"a001"}, active.AIDKeys())
	assert.Equal(t, 1, c.Updates())
}

func TestControllerStagesUntilUpdate(t *testing.T) {
	c, d := newBound(t)

	_, err := d.Do(controller.Command{Op: controller.OpSetTechRoute, Tech: route.TechB, Dest: 0x82})
	require.NoError(t, err)

	assert.Empty(t, c.Active().Techs)
	assert.Equal(t, route.Destination(0x82), c.Staged().Techs[route.TechB])
}

func TestControllerStatusInjection(t *testing.T) {
	c, d := newBound(t)

	c.FailNext(controller.OpAddSystemCode, controller.StatusNotSupported)
	_, err := d.Do(controller.Command{Op: controller.OpAddSystemCode, SystemCode: 0xFEFE, Dest: 0x81})
	assert.ErrorIs(t, err, controller.ErrNotSupported)
	assert.Empty(t, c.Staged().SystemCodes, "rejected command not applied")

	_, err = d.Do(controller.Command{Op: controller.OpAddSystemCode, SystemCode: 0xFEFE, Dest: 0x81})
	assert.NoError(t, err, "one-shot failure")

	c.SetStatus(controller.OpUpdateNow, controller.StatusFailed)
	_, err = d.Do(controller.Command{Op: controller.OpUpdateNow})
	assert.ErrorIs(t, err, controller.ErrCommandFailed)
	_, err = d.Do(controller.Command{Op: controller.OpUpdateNow})
	assert.ErrorIs(t, err, controller.ErrCommandFailed)
}

func TestControllerHoldRelease(t *testing.T) {
	c, d := newBound(t)
	c.Hold()

	p, err := d.Issue(controller.Command{Op: controller.OpUpdateNow})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return c.HeldCount() == 1 }, time.Second, time.Millisecond)
	select {
	case <-p.Done():
		t.Fatal("held completion delivered")
	case <-time.After(20 * time.Millisecond):
	}

	c.Release()
	_, err = p.Wait()
	assert.NoError(t, err)
}

func TestControllerNotifiesAfterDiscover(t *testing.T) {
	c, d := newBound(t)

	got := make(chan capability.Snapshot, 1)
	c.OnNotify(func(s capability.Snapshot) { got <- s })
	c.SetEEs(capability.EEInfo{ID: 0x81, TechA: route.ProtocolIsoDep})

	_, err := d.Do(controller.Command{Op: controller.OpDiscoverRequest})
	require.NoError(t, err)

	select {
	case s := <-got:
		assert.True(t, s.Supports(0x81, route.CategoryIsoDep))
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
}

func TestDirectoryEnableTimeout(t *testing.T) {
	c, d := newBound(t)
	dir := NewDirectory(d)
	dir.SetTimeout(20 * time.Millisecond)

	require.NoError(t, dir.Enable(0x82, true))
	assert.True(t, c.Enabled(0x82))

	c.Drop(controller.OpModeSet, true)
	err := dir.Enable(0x81, true)
	assert.ErrorIs(t, err, controller.ErrTimeout)
	assert.Equal(t, 0, d.Outstanding())
}

func TestDirectoryConnectedIDs(t *testing.T) {
	_, d := newBound(t)
	dir := NewDirectory(d)

	assert.Equal(t, route.Destination(0x81), dir.ResolveConnectedID(0x81))
	dir.Connect(0x81, 0x83)
	assert.Equal(t, route.Destination(0x83), dir.ResolveConnectedID(0x81))
	dir.Connect(0x81, route.Host)
	assert.Equal(t, route.Host, dir.ResolveConnectedID(0x81))

	assert.False(t, dir.IsFelicaCapableCardPresent())
	dir.SetFelicaCard(true)
	assert.True(t, dir.IsFelicaCapableCardPresent())
}
