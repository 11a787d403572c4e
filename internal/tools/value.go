package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is a dynamically typed tool parameter.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

func Null() Value                  { return Value{} }
func String(s string) Value        { return Value{kind: KindString, str: s} }
func Number(n float64) Value       { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func List(vs ...Value) Value       { return Value{kind: KindList, list: vs} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool)        { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool)       { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)            { return v.b, v.kind == KindBool }
func (v Value) AsList() ([]Value, bool)         { return v.list, v.kind == KindList }
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList, KindMap:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return "null"
	}
}

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	conv, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = conv
	return nil
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case float64:
		return Number(x), nil
	case []any:
		out := make([]Value, 0, len(x))
		for _, e := range x {
			ev, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			out = append(out, ev)
		}
		return List(out...), nil
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			ev, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = ev
		}
		return Map(out), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value %T", raw)
	}
}

// Params are the named arguments of a call.
type Params map[string]Value

// Has reports whether key is present and not null.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v.kind != KindNull
}

// Str returns a required, non-blank string parameter.
func (p Params) Str(key string) (string, error) {
	v, ok := p[key]
	if !ok || v.kind == KindNull {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidParameters, key)
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %s", ErrInvalidParameters, key, v.kind)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %q is empty", ErrInvalidParameters, key)
	}
	return s, nil
}

// StringOr returns an optional string parameter.
func (p Params) StringOr(key, def string) string {
	if s, ok := p[key].AsString(); ok {
		return s
	}
	return def
}

// Num returns a required numeric parameter.
func (p Params) Num(key string) (float64, error) {
	v, ok := p[key]
	if !ok || v.kind == KindNull {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidParameters, key)
	}
	n, ok := v.AsNumber()
	if !ok {
		return 0, fmt.Errorf("%w: %q must be a number, got %s", ErrInvalidParameters, key, v.kind)
	}
	return n, nil
}

// BoolOr returns an optional bool parameter.
func (p Params) BoolOr(key string, def bool) bool {
	if b, ok := p[key].AsBool(); ok {
		return b
	}
	return def
}
