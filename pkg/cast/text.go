package cast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
)

// Replacer overrides how a value is serialized. It is called for every value
// visited while serializing a map, struct or pointer, with the key the value
// was found under ("" at the root). Returning ok substitutes the replacement.
type Replacer func(key string, value any) (replacement any, ok bool)

// Stringify coerces v to display text. It always returns usable text; a
// non-nil error reports a value that could only be rendered as a placeholder.
// A String, Error or MarshalJSON method that panics, including one called on
// a nil pointer, yields the placeholder.
func Stringify(v any, replace Replacer) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("[%T]", v)
			err = imbuierrors.NewCoercionError(
				imbuierrors.ErrCodeUnserializable,
				fmt.Sprintf("converting %T to text panicked", v),
				imbuierrors.FromPanic(r),
			)
		}
	}()
	return stringify(v, replace)
}

func stringify(v any, replace Replacer) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		if !x {
			return "", nil
		}
		return "true", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x), nil
	case float32:
		return formatFloat(float64(x)), nil
	case []byte:
		return string(x), nil
	case error:
		return x.Error(), nil
	case fmt.Stringer:
		return x.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint, reflect.Uint8,
		reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr, reflect.Int64, reflect.Int:
		return fmt.Sprint(v), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return Stringify(rv.Bool(), replace)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float()), nil
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%T", v), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]", nil
		}
		parts := make([]string, rv.Len())
		var errs []error
		for i := range parts {
			s, err := Stringify(rv.Index(i).Interface(), replace)
			if err != nil {
				errs = append(errs, err)
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ",") + "]", errors.Join(errs...)
	}

	tree, err := normalize("", v, replace, false, make(map[uintptr]bool))
	if err == nil {
		var out []byte
		out, err = json.Marshal(tree)
		if err == nil {
			return string(out), nil
		}
	}
	return fmt.Sprintf("[%T]", v), imbuierrors.NewCoercionError(
		imbuierrors.ErrCodeUnserializable,
		fmt.Sprintf("cannot serialize %T", v),
		err,
	)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var errCycle = errors.New("cyclic value")

// normalize converts v into a tree of JSON-encodable values, applying the
// replacer at every level and rejecting cycles.
func normalize(key string, v any, replace Replacer, replaced bool, seen map[uintptr]bool) (any, error) {
	if replace != nil && !replaced {
		if r, ok := replace(key, v); ok {
			v = r
		}
	}
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(json.Marshaler); ok {
		return m, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Kind() == reflect.Pointer {
			p := rv.Pointer()
			if seen[p] {
				return nil, errCycle
			}
			seen[p] = true
			defer delete(seen, p)
		}
		return normalize(key, rv.Elem().Interface(), replace, true, seen)

	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		p := rv.Pointer()
		if seen[p] {
			return nil, errCycle
		}
		seen[p] = true
		defer delete(seen, p)

		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			child, err := normalize(k, iter.Value().Interface(), replace, false, seen)
			if err != nil {
				return nil, err
			}
			out[k] = child
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return nil, nil
			}
			if rv.Len() > 0 {
				p := rv.Pointer()
				if seen[p] {
					return nil, errCycle
				}
				seen[p] = true
				defer delete(seen, p)
			}
		}
		out := make([]any, rv.Len())
		for i := range out {
			child, err := normalize(strconv.Itoa(i), rv.Index(i).Interface(), replace, false, seen)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil

	case reflect.Struct:
		t := rv.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			child, err := normalize(name, rv.Field(i).Interface(), replace, false, seen)
			if err != nil {
				return nil, err
			}
			out[name] = child
		}
		return out, nil

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, nil
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v), nil
	}
	return v, nil
}

// same reports whether two bound values are the same for diffing purposes.
// Comparable values use ==, maps and slices compare by header identity, and
// functions never compare equal.
func same(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if fa, ok := a.(float64); ok {
		fb := b.(float64)
		return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
	}

	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Map, reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}

	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
