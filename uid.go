package crdt

import "github.com/google/uuid"

// NewUID returns a fresh identifier suitable for an ORArray element
// (spec §4.5's uid). Two concurrent inserts from different replicas
// must not collide, which a random UUID gives for free without any
// coordination between replicas — the same property the teacher relies
// on for object identifiers throughout chotki.go and obj.go, there
// backed by its own ID scheme; here a plain random UUID is enough since
// ORArray's algebra never interprets the uid beyond equality.
func NewUID() string {
	return uuid.NewString()
}
