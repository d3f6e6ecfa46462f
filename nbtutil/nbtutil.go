// Package nbtutil reads and rewrites the few fields of entity, tile entity
// and tile tick compounds that move with a copy. Everything else in a
// compound is treated as opaque and carried through Clone.
package nbtutil

import (
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/xmdhs/regioncopy/box"
)

// Compound is a decoded NBT compound as produced by the NBT decoders in
// use (go-mc for Java, gophertunnel for Pocket).
type Compound = map[string]any

type header struct {
	ID    string    `mapstructure:"id"`
	X     *int      `mapstructure:"x"`
	Y     *int      `mapstructure:"y"`
	Z     *int      `mapstructure:"z"`
	Pos   []float64 `mapstructure:"Pos"`
	TileX *int      `mapstructure:"TileX"`
	TileY *int      `mapstructure:"TileY"`
	TileZ *int      `mapstructure:"TileZ"`
}

func decodeHeader(m Compound) (header, bool) {
	var h header
	if m == nil {
		return h, false
	}
	if err := mapstructure.WeakDecode(m, &h); err != nil {
		return h, false
	}
	return h, true
}

// ID returns the "id" field of a compound, or "".
func ID(m Compound) string {
	if s, ok := m["id"].(string); ok {
		return s
	}
	h, _ := decodeHeader(m)
	return h.ID
}

// BlockPos reads the integer x/y/z position of a tile entity or tile tick.
func BlockPos(m Compound) (box.Vec, bool) {
	h, ok := decodeHeader(m)
	if !ok || h.X == nil || h.Y == nil || h.Z == nil {
		return box.Vec{}, false
	}
	return box.Vec{X: *h.X, Y: *h.Y, Z: *h.Z}, true
}

// SetBlockPos writes x/y/z, keeping whatever integer type the compound
// already used.
func SetBlockPos(m Compound, v box.Vec) {
	setInt(m, "x", v.X)
	setInt(m, "y", v.Y)
	setInt(m, "z", v.Z)
}

// EntityPos reads the three-element Pos list of an entity.
func EntityPos(m Compound) ([3]float64, bool) {
	h, ok := decodeHeader(m)
	if !ok || len(h.Pos) != 3 {
		return [3]float64{}, false
	}
	return [3]float64{h.Pos[0], h.Pos[1], h.Pos[2]}, true
}

// SetEntityPos replaces Pos, keeping the element type (double for Java,
// float for Pocket).
func SetEntityPos(m Compound, p [3]float64) {
	switch old := m["Pos"].(type) {
	case []float32:
		m["Pos"] = []float32{float32(p[0]), float32(p[1]), float32(p[2])}
	case []any:
		if len(old) == 3 {
			if _, ok := old[0].(float32); ok {
				m["Pos"] = []any{float32(p[0]), float32(p[1]), float32(p[2])}
				return
			}
		}
		m["Pos"] = []any{p[0], p[1], p[2]}
	default:
		m["Pos"] = []any{p[0], p[1], p[2]}
	}
}

// EntityBlock is the block an entity stands in.
func EntityBlock(m Compound) (box.Vec, bool) {
	p, ok := EntityPos(m)
	if !ok {
		return box.Vec{}, false
	}
	return box.Vec{X: box.FloorFloat(p[0]), Y: box.FloorFloat(p[1]), Z: box.FloorFloat(p[2])}, true
}

// OffsetBlockPos shifts x/y/z of a tile entity or tile tick.
func OffsetBlockPos(m Compound, d box.Vec) bool {
	p, ok := BlockPos(m)
	if !ok {
		return false
	}
	SetBlockPos(m, p.Add(d))
	return true
}

// OffsetEntity shifts Pos and, for hanging entities, TileX/TileY/TileZ.
func OffsetEntity(m Compound, d box.Vec) bool {
	p, ok := EntityPos(m)
	if !ok {
		return false
	}
	SetEntityPos(m, [3]float64{p[0] + float64(d.X), p[1] + float64(d.Y), p[2] + float64(d.Z)})
	h, _ := decodeHeader(m)
	if h.TileX != nil && h.TileY != nil && h.TileZ != nil {
		setInt(m, "TileX", *h.TileX+d.X)
		setInt(m, "TileY", *h.TileY+d.Y)
		setInt(m, "TileZ", *h.TileZ+d.Z)
	}
	return true
}

func setInt(m Compound, key string, v int) {
	switch m[key].(type) {
	case int8:
		m[key] = int8(v)
	case uint8:
		m[key] = uint8(v)
	case int16:
		m[key] = int16(v)
	case int64:
		m[key] = int64(v)
	case int:
		m[key] = v
	default:
		m[key] = int32(v)
	}
}

// Clone deep-copies an NBT value. Maps, slices and arrays are copied;
// scalars are shared.
func Clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Clone(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, e := range v {
			out[i] = CloneCompound(e)
		}
		return out
	case []byte:
		return append([]byte(nil), v...)
	case []int32:
		return append([]int32(nil), v...)
	case []int64:
		return append([]int64(nil), v...)
	case string, int8, uint8, int16, int32, int64, float32, float64, int, bool, nil:
		return v
	}
	// Fixed-size arrays and typed slices from other decoders.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(reflect.ValueOf(Clone(rv.Index(i).Interface())))
		}
		return out.Interface()
	}
	return v
}

func CloneCompound(m Compound) Compound {
	if m == nil {
		return nil
	}
	return Clone(m).(map[string]any)
}

// JavaCompounds returns deep copies of l with fixed-size arrays, as decoded
// from Pocket worlds, turned into slices the big endian encoder can write.
func JavaCompounds(l []Compound) []Compound {
	if l == nil {
		return nil
	}
	out := make([]Compound, len(l))
	for i, m := range l {
		out[i] = javaValue(m).(map[string]any)
	}
	return out
}

func javaValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = javaValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = javaValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, e := range v {
			out[i] = javaValue(e).(map[string]any)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array {
		out := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	}
	return Clone(v)
}
