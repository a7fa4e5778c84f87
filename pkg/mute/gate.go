// Package mute gates which RF technologies are exposed to listen mode.
package mute

import (
	"sync"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// hostListenable are the technologies the host can listen on.
const hostListenable = route.TechA | route.TechB

// Gate holds the current mute bitmap. It is safe for concurrent use.
type Gate struct {
	mu     sync.RWMutex
	bitmap route.MuteBitmap
}

// NewGate creates a gate with nothing muted.
func NewGate() *Gate {
	return &Gate{}
}

// Set replaces the bitmap and returns the one it replaced.
func (g *Gate) Set(b route.MuteBitmap) route.MuteBitmap {
	g.mu.Lock()
	defer g.mu.Unlock()

	old := g.bitmap
	g.bitmap = b
	return old
}

// Bitmap returns the current bitmap.
func (g *Gate) Bitmap() route.MuteBitmap {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bitmap
}

// DiscoveryDisabled reports whether discovery is stopped entirely.
func (g *Gate) DiscoveryDisabled() bool {
	return g.Bitmap().DiscoveryDisabled()
}

// HostListenTech returns the technologies the host listens on: A and B
// minus the muted ones, or none when discovery is disabled.
func (g *Gate) HostListenTech() route.TechMask {
	b := g.Bitmap()
	if b.DiscoveryDisabled() {
		return 0
	}
	return hostListenable &^ b.MutedTechs()
}

// Muted reports whether every technology category c is carried on is muted.
func (g *Gate) Muted(c route.Category) bool {
	b := g.Bitmap()
	if b.DiscoveryDisabled() {
		return true
	}
	techs := c.Techs()
	return techs != 0 && techs&^b.MutedTechs() == 0
}
