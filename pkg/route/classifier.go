package route

// Class groups execution environments by the eligibility rules that apply
// to them.
type Class uint8

const (
	ClassHost Class = iota
	ClassUICC
	ClassESE
	ClassOffHost
	ClassNone
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassHost:
		return "HOST"
	case ClassUICC:
		return "UICC"
	case ClassESE:
		return "ESE"
	case ClassOffHost:
		return "OFFHOST"
	default:
		return "NONE"
	}
}

// Default execution environment ids.
var (
	DefaultUICCIDs = []Destination{0x81, 0x83, 0x85}
	DefaultESEIDs  = []Destination{0x82, 0x84, 0x86}
)

// Classifier maps execution environment ids to their class.
// A Classifier is immutable after construction.
type Classifier struct {
	uicc map[Destination]struct{}
	ese  map[Destination]struct{}
}

// NewClassifier builds a classifier from explicit UICC and eSE id lists.
// An id present in both lists is classified as UICC.
func NewClassifier(uicc, ese []Destination) *Classifier {
	c := &Classifier{
		uicc: make(map[Destination]struct{}, len(uicc)),
		ese:  make(map[Destination]struct{}, len(ese)),
	}
	for _, id := range uicc {
		c.uicc[id] = struct{}{}
	}
	for _, id := range ese {
		c.ese[id] = struct{}{}
	}
	return c
}

// DefaultClassifier returns a classifier using DefaultUICCIDs and DefaultESEIDs.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultUICCIDs, DefaultESEIDs)
}

// Classify returns the class of d.
func (c *Classifier) Classify(d Destination) Class {
	switch {
	case d == Host:
		return ClassHost
	case d == Unrouted:
		return ClassNone
	}
	if _, ok := c.uicc[d]; ok {
		return ClassUICC
	}
	if _, ok := c.ese[d]; ok {
		return ClassESE
	}
	return ClassOffHost
}
