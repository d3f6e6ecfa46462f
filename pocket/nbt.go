package pocket

import (
	"reflect"

	"github.com/xmdhs/regioncopy/nbtutil"
)

// pocketValue rewrites an NBT value decoded elsewhere into the types the
// little endian encoder accepts. Signed bytes become unsigned, and byte,
// int and long arrays become fixed-size arrays so they keep their array
// tag instead of turning into lists.
func pocketValue(v any) any {
	switch v := v.(type) {
	case int8:
		return uint8(v)
	case []int8:
		out := make([]uint8, len(v))
		for i, b := range v {
			out[i] = uint8(b)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = pocketValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = pocketValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, e := range v {
			out[i] = pocketValue(e).(map[string]any)
		}
		return out
	case []byte, []int32, []int64:
		rv := reflect.ValueOf(v)
		out := reflect.New(reflect.ArrayOf(rv.Len(), rv.Type().Elem())).Elem()
		reflect.Copy(out, rv)
		return out.Interface()
	}
	return v
}

func pocketCompound(m nbtutil.Compound) nbtutil.Compound {
	if m == nil {
		return nil
	}
	return pocketValue(map[string]any(m)).(map[string]any)
}
