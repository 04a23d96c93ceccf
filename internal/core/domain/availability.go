package domain

import "time"

// Kind selects which of the two availability maps an operation targets.
type Kind string

const (
	KindProducts Kind = "products"
	KindFlavors  Kind = "flavors"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == KindProducts || k == KindFlavors
}

// Kinds lists every availability kind, in a fixed order.
func Kinds() []Kind {
	return []Kind{KindProducts, KindFlavors}
}

// AvailabilityMap maps an item key (product id, or a composite type_name
// flavor key) to whether the item can currently be ordered.
type AvailabilityMap map[string]bool

// Clone returns a copy of m that shares no storage with it.
func (m AvailabilityMap) Clone() AvailabilityMap {
	out := make(AvailabilityMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AvailabilityRecord is the persisted per-key form of one map entry.
type AvailabilityRecord struct {
	Key         string
	IsAvailable bool
	LastUpdated time.Time
	UpdatedBy   string
}

// ConnectionState is a snapshot of the backing store's connectivity as seen
// by the connection supervisor. Connected may lag real connectivity by up to
// one probe interval.
type ConnectionState struct {
	Connected  bool
	RetryCount int
	LastError  string
}

// AuditEntry records one accepted mutation of an availability map.
type AuditEntry struct {
	Action string
	Kind   Kind
	Actor  string
	Count  int
	At     time.Time
}
