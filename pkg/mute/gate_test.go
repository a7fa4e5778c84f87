package mute

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

func TestGateSet(t *testing.T) {
	g := NewGate()
	assert.Equal(t, route.MuteBitmap(0), g.Bitmap())
	assert.Equal(t, route.MuteBitmap(0), g.Set(0))
	assert.Equal(t, route.MuteBitmap(0), g.Set(route.MuteTechA))
	assert.Equal(t, route.MuteTechA, g.Set(route.MuteTechA|route.MuteTechF))
	assert.Equal(t, route.MuteTechA|route.MuteTechF, g.Bitmap())
}

func TestHostListenTech(t *testing.T) {
	tests := []struct {
		bitmap route.MuteBitmap
		want   route.TechMask
	}{
		{0, route.TechA | route.TechB},
		{route.MuteTechA, route.TechB},
		{route.MuteTechB, route.TechA},
		{route.MuteTechF, route.TechA | route.TechB},
		{route.MuteTechA | route.MuteTechB, 0},
		{route.MuteDiscoveryDisabled, 0},
	}
	for _, tt := range tests {
		t.Run(tt.bitmap.String(), func(t *testing.T) {
			g := NewGate()
			g.Set(tt.bitmap)
			if got := g.HostListenTech(); got != tt.want {
				t.Errorf("HostListenTech() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMuted(t *testing.T) {
	g := NewGate()
	g.Set(route.MuteTechA)

	assert.True(t, g.Muted(route.CategoryTechA))
	assert.False(t, g.Muted(route.CategoryTechB))
	assert.False(t, g.Muted(route.CategoryIsoDep), "still reachable over tech B")

	g.Set(route.MuteTechA | route.MuteTechB)
	assert.True(t, g.Muted(route.CategoryIsoDep))
	assert.True(t, g.Muted(route.CategoryAID))
	assert.False(t, g.Muted(route.CategoryT3T))

	g.Set(route.MuteDiscoveryDisabled)
	assert.True(t, g.DiscoveryDisabled())
	for _, c := range route.AllCategories() {
		assert.True(t, g.Muted(c), c.String())
	}
}
