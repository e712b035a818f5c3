package reactor

import "fmt"

// NodeID identifies a node in the ownership tree.
// IDs are allocated monotonically and never reused; the zero value never
// names a live node.
type NodeID uint64

// String returns the node id in "#n" form.
func (id NodeID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// Key names one unit of store-held state.
// Keys owned by a node (such as the storage of a Mutable) carry that node's
// id; host-owned state uses a zero Node.
type Key struct {
	Node NodeID `json:"node,omitempty"`
	Name string `json:"name"`
}

// ResourceKey returns the key for host-owned state that is not tied to a node.
func ResourceKey(name string) Key {
	return Key{Name: name}
}

// String returns a human-readable form of the key.
func (k Key) String() string {
	if k.Node == 0 {
		return k.Name
	}
	return fmt.Sprintf("%s%s", k.Name, k.Node)
}

// Version is a per-key write counter. Every write to a key gives it a
// version strictly greater than any version it had before.
type Version int64

// NoVersion is recorded when a tracked read finds no value for the key.
const NoVersion Version = -1

// DependencyRecord is one entry of a TrackingScope: the key that was read
// and the version that was observed.
type DependencyRecord struct {
	Key     Key     `json:"key"`
	Version Version `json:"version"`
}
