package jstore

import (
	"github.com/ValentinKolb/jsondb/lib/codec"
	"reflect"
)

// validateCodec checks that the mapping is a json document, independent of the configured codec
var validateCodec = codec.NewJSONCodec()

// deepCopy copies all maps and slices of v, including typed ones such as
// map[string]int. Other values (scalars, pointers, structs) are returned as they
// are. If v contains itself it cannot be copied: v is returned unchanged and ok
// is false.
func deepCopy(v any) (copied any, ok bool) {
	switch v.(type) {
	case nil, bool, string, float64, float32, int, int64, int32, uint64, uint32:
		return v, true
	}

	c := copier{active: make(map[visit]struct{})}
	out := c.copy(reflect.ValueOf(v))
	if c.cyclic {
		return v, false
	}
	return out.Interface(), true
}

// visit identifies a map or slice that is currently being copied
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type copier struct {
	active map[visit]struct{}
	cyclic bool
}

// enter marks k as being copied, it reports false if k is already on the stack
func (c *copier) enter(k visit) bool {
	if _, ok := c.active[k]; ok {
		c.cyclic = true
		return false
	}
	c.active[k] = struct{}{}
	return true
}

func (c *copier) copy(v reflect.Value) reflect.Value {
	if c.cyclic {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(c.copy(v.Elem()))
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		k := visit{ptr: v.Pointer(), typ: v.Type()}
		if !c.enter(k) {
			return v
		}
		defer delete(c.active, k)

		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.copy(iter.Value()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		if v.Len() > 0 {
			k := visit{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}
			if !c.enter(k) {
				return v
			}
			defer delete(c.active, k)
		}

		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	default:
		return v
	}
}
