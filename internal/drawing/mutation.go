package drawing

// MutationKind identifies a drawing mutation request.
type MutationKind int

const (
	MutationAddMarker MutationKind = iota
	MutationRemoveMarker
)

func (k MutationKind) String() string {
	switch k {
	case MutationAddMarker:
		return "AddMarker"
	case MutationRemoveMarker:
		return "RemoveMarker"
	default:
		return "Unknown"
	}
}

// Mutation is a single drawing change requested by the core. The core never
// writes to the snapshot itself; it returns a batch of mutations that the
// host must apply transactionally (all or none).
type Mutation struct {
	Kind   MutationKind `json:"kind"`
	Marker Marker       `json:"marker"` // marker to add, or existing marker to remove (by ID)
}
