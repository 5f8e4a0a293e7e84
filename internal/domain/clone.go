package domain

import "reflect"

// CloneAttributes deep-copies an attribute bag. Nested maps and lists are
// copied; scalar values are shared. A nil bag yields an empty one.
func CloneAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices of any type, keeping their type, so
// named map types produced by decoders (such as a collector record) are
// copied rather than shared
func CloneValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return CloneAttributes(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value(), rv.Type().Elem()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out.Interface()
	}
	return v
}

func cloneElem(v reflect.Value, elem reflect.Type) reflect.Value {
	if v.Kind() == reflect.Interface && v.IsNil() {
		return reflect.Zero(elem)
	}
	c := CloneValue(v.Interface())
	if c == nil {
		return reflect.Zero(elem)
	}
	return reflect.ValueOf(c)
}

// PlainValue returns a deep copy of v in the shape JSON decoding produces:
// string-keyed maps become map[string]any, slices become []any and every
// number becomes float64. YAML decoders yield ints and named map types;
// passing their output through PlainValue makes it indistinguishable from
// the JSON form.
func PlainValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = PlainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = PlainValue(item)
		}
		return out
	case string, bool, float64:
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = PlainValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = PlainValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// PlainAttributes applies PlainValue to every value of an attribute bag in
// place
func PlainAttributes(attrs map[string]any) {
	for k, v := range attrs {
		attrs[k] = PlainValue(v)
	}
}

// Clone returns a copy of the metadata that shares no slices
func (m Metadata) Clone() Metadata {
	out := m
	if m.Degraded != nil {
		out.Degraded = append([]Category(nil), m.Degraded...)
	}
	return out
}

// PlainAttributes rewrites every device attribute bag into JSON form
func (g *TopologyGraph) PlainAttributes() {
	for i := range g.Devices {
		PlainAttributes(g.Devices[i].Attributes)
	}
}

// PlainAttributes rewrites every model attribute bag into JSON form
func (d *VisualizationDocument) PlainAttributes() {
	for i := range d.Models {
		PlainAttributes(d.Models[i].Attributes)
	}
}
