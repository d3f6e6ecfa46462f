package nbtutil

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// RegenerateUUID gives an entity a fresh identity in whichever form it
// already carries: the [4]int32 UUID array, the UUIDMost/UUIDLeast pair,
// or Pocket's UniqueID long. Compounds with none of these get the pair.
func RegenerateUUID(m Compound) uuid.UUID {
	id := uuid.New()
	most := int64(binary.BigEndian.Uint64(id[:8]))
	least := int64(binary.BigEndian.Uint64(id[8:]))

	var set bool
	if _, ok := m["UUID"]; ok {
		m["UUID"] = UUIDToInts(id)
		set = true
	}
	_, hasMost := m["UUIDMost"]
	_, hasLeast := m["UUIDLeast"]
	if hasMost || hasLeast {
		m["UUIDMost"] = most
		m["UUIDLeast"] = least
		set = true
	}
	if _, ok := m["UniqueID"]; ok {
		m["UniqueID"] = most
		set = true
	}
	if !set {
		m["UUIDMost"] = most
		m["UUIDLeast"] = least
	}
	return id
}

// UUIDToInts packs a UUID the way 1.16+ entity NBT stores it.
func UUIDToInts(id uuid.UUID) []int32 {
	out := make([]int32, 4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(id[i*4:]))
	}
	return out
}

// IntsToUUID is the inverse of UUIDToInts.
func IntsToUUID(v []int32) (uuid.UUID, bool) {
	if len(v) != 4 {
		return uuid.Nil, false
	}
	var b [16]byte
	for i, x := range v {
		binary.BigEndian.PutUint32(b[i*4:], uint32(x))
	}
	id, err := uuid.FromBytes(b[:])
	return id, err == nil
}
