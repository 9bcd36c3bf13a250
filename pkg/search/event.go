package search

import "github.com/dattu/truncated_collider/pkg/fingerprint"

// EventKind classifies what the coordinator found on a fingerprint hit.
type EventKind int

const (
	// Duplicate means both positions produced byte-identical samples.
	Duplicate EventKind = iota + 1
	// Inconclusive means the samples differ but the secondary filter rejected them.
	Inconclusive
	// Verified means the samples differ and the secondary filter agrees.
	Verified
)

func (k EventKind) String() string {
	switch k {
	case Duplicate:
		return "duplicate"
	case Inconclusive:
		return "inconclusive"
	case Verified:
		return "verified"
	default:
		return "unknown"
	}
}

// Observation is a position and the sample re-derived for it.
type Observation struct {
	Position uint64
	Sample   []byte
	Digest   fingerprint.Digest
}

// Event describes a fingerprint hit. Prev held the index slot before Curr.
type Event struct {
	Kind        EventKind
	Fingerprint fingerprint.Fingerprint
	Hex         string
	Prev, Curr  Observation
	// Count is the global occurrence count when the hit was adjudicated.
	Count uint64
}

// Observer receives the coordinator's output. Calls come from the coordinator
// goroutine only.
type Observer interface {
	Progress(count uint64)
	Event(e Event)
}

// Observers fans out to every member.
type Observers []Observer

func (o Observers) Progress(count uint64) {
	for _, ob := range o {
		ob.Progress(count)
	}
}

func (o Observers) Event(e Event) {
	for _, ob := range o {
		ob.Event(e)
	}
}

type nopObserver struct{}

func (nopObserver) Progress(uint64) {}
func (nopObserver) Event(Event)     {}
