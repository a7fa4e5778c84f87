// Package resolver turns wanted routing destinations into destinations that
// are reachable right now.
//
// Resolution consults three inputs: the secure-element Directory (which
// logical slot is connected to which physical execution environment), the
// current capability snapshot (what each environment advertises) and the
// mute bitmap (which technologies are hidden from listen mode).
//
// Categories fall back differently when the wanted environment cannot take
// the traffic: ISO-DEP, T3T and the A/B technologies fall back to the host,
// which can always listen; technology F and system-code routing resolve to
// route.Unrouted, leaving the category out of the table.
package resolver

import (
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// Directory is the secure-element subsystem as seen by the routing engine.
type Directory interface {
	// ResolveConnectedID translates a logical destination into the id of the
	// currently connected execution environment. It returns route.Host when
	// nothing is connected for that slot.
	ResolveConnectedID(logical route.Destination) route.Destination

	// IsFelicaCapableCardPresent reports whether a Felica-capable card is
	// present in the embedded secure element.
	IsFelicaCapableCardPresent() bool

	// Enable switches an execution environment on or off.
	Enable(id route.Destination, on bool) error
}

// Preferences supplies the wanted destination of each category.
type Preferences interface {
	Effective(c route.Category) route.Destination
}

// Resolver resolves categories against a Directory and a capability snapshot.
type Resolver struct {
	dir        Directory
	classifier *route.Classifier
}

// New creates a resolver. A nil classifier selects route.DefaultClassifier.
func New(dir Directory, classifier *route.Classifier) *Resolver {
	if classifier == nil {
		classifier = route.DefaultClassifier()
	}
	return &Resolver{dir: dir, classifier: classifier}
}

// Classifier returns the classifier used for Felica eligibility.
func (r *Resolver) Classifier() *route.Classifier {
	return r.classifier
}

// Resolve returns the destination traffic of category c should be routed
// to, given the wanted destination, the snapshot and the mute bitmap.
func (r *Resolver) Resolve(c route.Category, wanted route.Destination, snap capability.Snapshot, mute route.MuteBitmap) route.Destination {
	if !c.Valid() || mute.DiscoveryDisabled() {
		return route.Unrouted
	}
	if c.Techs()&^mute.MutedTechs() == 0 {
		return route.Unrouted
	}

	switch wanted {
	case route.Unrouted:
		return route.Unrouted
	case route.Host:
		return route.Host
	}

	id := r.dir.ResolveConnectedID(wanted)
	if !id.IsOffHost() {
		return fallback(c)
	}

	if c.IsFelica() {
		return r.resolveFelica(c, id, snap)
	}

	// The environment would NAK every frame of a protocol it does not
	// advertise.
	if !snap.Supports(id, c) {
		return fallback(c)
	}
	return id
}

// resolveFelica applies the stricter eligibility of technology F and
// system-code routing: UICCs qualify on their own, embedded secure elements
// only while a Felica-capable card is present.
func (r *Resolver) resolveFelica(c route.Category, id route.Destination, snap capability.Snapshot) route.Destination {
	switch r.classifier.Classify(id) {
	case route.ClassUICC:
	case route.ClassESE:
		if !r.dir.IsFelicaCapableCardPresent() {
			return route.Unrouted
		}
	default:
		return route.Unrouted
	}
	if !snap.Supports(id, c) {
		return route.Unrouted
	}
	return id
}

// ResolveTable resolves every category.
func (r *Resolver) ResolveTable(prefs Preferences, snap capability.Snapshot, mute route.MuteBitmap) route.Table {
	t := route.NewTable()
	for _, c := range route.AllCategories() {
		wanted := prefs.Effective(c)
		t.Set(c, wanted, r.Resolve(c, wanted, snap, mute))
	}
	return t
}

func fallback(c route.Category) route.Destination {
	if c.IsFelica() {
		return route.Unrouted
	}
	return route.Host
}
