package starbind

import (
	"fmt"
	"reflect"

	"go.starlark.net/starlark"
)

// toStarlark converts a value produced by the decoder into a starlark
// value. Structs and slices are wrapped, not copied. Named integer types
// with a String method, like instruction kinds, become strings.
func toStarlark(v interface{}) starlark.Value {
	switch v := v.(type) {
	case nil:
		return starlark.None
	case starlark.Value:
		return v
	case []byte:
		return starlark.Bytes(v)
	case error:
		return starlark.String(v.Error())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return starlark.None
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return structValue{rv}
	case reflect.Slice, reflect.Array:
		return sliceValue{rv}
	case reflect.Bool:
		return starlark.Bool(rv.Bool())
	case reflect.String:
		return starlark.String(rv.String())
	}

	if s, ok := v.(fmt.Stringer); ok && rv.Type().PkgPath() != "" {
		return starlark.String(s.String())
	}
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return starlark.MakeUint64(rv.Uint())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int())
	}
	return starlark.String(fmt.Sprint(v))
}

// sliceValue is a read-only starlark sequence backed by a Go slice.
type sliceValue struct {
	v reflect.Value
}

var (
	_ starlark.Indexable = sliceValue{}
	_ starlark.Sequence  = sliceValue{}
)

func (v sliceValue) Freeze()               {}
func (v sliceValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", v.Type()) }
func (v sliceValue) String() string        { return fmt.Sprint(v.v.Interface()) }
func (v sliceValue) Truth() starlark.Bool  { return v.v.Len() > 0 }
func (v sliceValue) Type() string          { return v.v.Type().String() }
func (v sliceValue) Len() int              { return v.v.Len() }

func (v sliceValue) Index(i int) starlark.Value {
	return toStarlark(v.v.Index(i).Interface())
}

func (v sliceValue) Iterate() starlark.Iterator {
	return &sliceIterator{v: v.v}
}

type sliceIterator struct {
	v   reflect.Value
	pos int
}

func (it *sliceIterator) Next(p *starlark.Value) bool {
	if it.pos >= it.v.Len() {
		return false
	}
	*p = toStarlark(it.v.Index(it.pos).Interface())
	it.pos++
	return true
}

func (it *sliceIterator) Done() {}

// structValue exposes the exported fields of a Go struct as attributes.
type structValue struct {
	v reflect.Value
}

var _ starlark.HasAttrs = structValue{}

func (v structValue) Freeze()               {}
func (v structValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", v.Type()) }
func (v structValue) String() string        { return fmt.Sprintf("%+v", v.v.Interface()) }
func (v structValue) Truth() starlark.Bool  { return true }
func (v structValue) Type() string          { return v.v.Type().String() }

func (v structValue) Attr(name string) (starlark.Value, error) {
	f, ok := v.v.Type().FieldByName(name)
	if !ok || !f.IsExported() {
		return nil, fmt.Errorf("%s has no field %q", v.v.Type(), name)
	}
	return toStarlark(v.v.FieldByIndex(f.Index).Interface()), nil
}

func (v structValue) AttrNames() []string {
	typ := v.v.Type()
	names := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).IsExported() {
			names = append(names, typ.Field(i).Name)
		}
	}
	return names
}

// fromStarlark stores val into the Go variable dst points to. Dicts fill
// structs field by field. None leaves dst unchanged. name is used in
// error messages.
func fromStarlark(val starlark.Value, dst interface{}, name string) error {
	return setValue(val, reflect.ValueOf(dst).Elem(), name)
}

func setValue(val starlark.Value, dst reflect.Value, name string) error {
	if val == starlark.None {
		return nil
	}
	cannot := func() error {
		return fmt.Errorf("argument %s: can not use %s as %s", name, val.Type(), dst.Type())
	}

	for dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		dst = dst.Elem()
	}

	switch val := val.(type) {
	case starlark.Bool:
		if dst.Kind() != reflect.Bool {
			return cannot()
		}
		dst.SetBool(bool(val))
	case starlark.String:
		if dst.Kind() != reflect.String {
			return cannot()
		}
		dst.SetString(string(val))
	case starlark.Int:
		switch dst.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			n, ok := val.Uint64()
			if !ok || dst.OverflowUint(n) {
				return fmt.Errorf("argument %s: %s out of range for %s", name, val, dst.Type())
			}
			dst.SetUint(n)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, ok := val.Int64()
			if !ok || dst.OverflowInt(n) {
				return fmt.Errorf("argument %s: %s out of range for %s", name, val, dst.Type())
			}
			dst.SetInt(n)
		default:
			return cannot()
		}
	case *starlark.List:
		if dst.Kind() != reflect.Slice {
			return cannot()
		}
		s := reflect.MakeSlice(dst.Type(), val.Len(), val.Len())
		for i := 0; i < val.Len(); i++ {
			if err := setValue(val.Index(i), s.Index(i), fmt.Sprintf("%s[%d]", name, i)); err != nil {
				return err
			}
		}
		dst.Set(s)
	case *starlark.Dict:
		if dst.Kind() != reflect.Struct {
			return cannot()
		}
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return fmt.Errorf("argument %s: key %s is not a string", name, item[0])
			}
			f, ok := dst.Type().FieldByName(string(key))
			if !ok || !f.IsExported() {
				return fmt.Errorf("argument %s: %s has no field %s", name, dst.Type(), key)
			}
			if err := setValue(item[1], dst.FieldByIndex(f.Index), name+"."+string(key)); err != nil {
				return err
			}
		}
	case structValue:
		if val.v.Type() != dst.Type() {
			return cannot()
		}
		dst.Set(val.v)
	default:
		return cannot()
	}
	return nil
}
