// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Reserved object keys produced by Decode
const (
	// AttrPrefix prefixes keys that hold element attributes
	AttrPrefix = "@"

	// TextKey holds an element's own text when it also has attributes or children
	TextKey = "#text"

	// CDataKey holds the content of an element's character-data section
	CDataKey = "#cdata"
)

// Kind is the variant of a Value
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindArray
	KindObject
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a schema-free tree: Null, String, Array or Object.
//
// Objects keep insertion order and unique keys. Every leaf is a string;
// Decode never coerces numbers or booleans. The zero Value is Null.
//
// Values returned by Decode are owned by the caller and treated as
// read-only; accessors never expose internal storage for mutation.
type Value struct {
	kind Kind
	str  string
	arr  []Value
	obj  *orderedmap.OrderedMap[string, Value]
}

// Null returns the Null value
func Null() Value {
	return Value{}
}

// String returns a String value
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Array returns an Array value holding a copy of items
func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	copy(arr, items)
	return Value{kind: KindArray, arr: arr}
}

// Member is one key/value pair of an Object
type Member struct {
	Key   string
	Value Value
}

// Object returns an Object value with members in the given order.
// A repeated key keeps its first position and its last value.
func Object(members ...Member) Value {
	obj := orderedmap.New[string, Value](len(members))
	for _, m := range members {
		obj.Set(m.Key, m.Value)
	}
	return Value{kind: KindObject, obj: obj}
}

// Kind returns the variant
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is Null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Str returns the text of a String value
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Items returns a copy of the elements of an Array value, nil otherwise
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	return out
}

// Len returns the number of elements or members; 0 for scalars
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	default:
		return 0
	}
}

// Get returns the member key of an Object value
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	return v.obj.Get(key)
}

// Keys returns the member keys of an Object value in insertion order
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, v.obj.Len())
	for p := v.obj.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Members returns the members of an Object value in insertion order
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	out := make([]Member, 0, v.obj.Len())
	for p := v.obj.Oldest(); p != nil; p = p.Next() {
		out = append(out, Member{Key: p.Key, Value: p.Value})
	}
	return out
}

// Pointer resolves a JSON Pointer (RFC 6901) such as
// "/rpc-reply/data/components/component/0/name".
func (v Value) Pointer(ptr string) (Value, bool) {
	if ptr == "" {
		return v, true
	}
	if !strings.HasPrefix(ptr, "/") {
		return Value{}, false
	}
	cur := v
	for _, tok := range strings.Split(ptr[1:], "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch cur.kind {
		case KindObject:
			next, ok := cur.obj.Get(tok)
			if !ok {
				return Value{}, false
			}
			cur = next
		case KindArray:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(cur.arr) {
				return Value{}, false
			}
			cur = cur.arr[i]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// Equal reports whether a and b are structurally equal. Object member
// order is significant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		pa, pb := a.obj.Oldest(), b.obj.Oldest()
		for pa != nil && pb != nil {
			if pa.Key != pb.Key || !Equal(pa.Value, pb.Value) {
				return false
			}
			pa, pb = pa.Next(), pb.Next()
		}
		return true
	}
	return false
}

// merge is the sibling rule: the first occurrence of a key is stored as is,
// the second turns the entry into [existing, incoming], later ones append.
// An existing Array is never modified in place.
func merge(existing Value, present bool, incoming Value) Value {
	if !present {
		return incoming
	}
	if existing.kind == KindArray {
		arr := make([]Value, len(existing.arr), len(existing.arr)+1)
		copy(arr, existing.arr)
		return Value{kind: KindArray, arr: append(arr, incoming)}
	}
	return Value{kind: KindArray, arr: []Value{existing, incoming}}
}

// MarshalJSON renders the tree as JSON with object members in order.
// Markup characters in strings are not escaped.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindString:
		return writeJSONString(buf, v.str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for p := v.obj.Oldest(); p != nil; p = p.Next() {
			if p != v.obj.Oldest() {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, p.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := p.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// MarshalYAML renders the tree as a YAML node keeping member order
func (v Value) MarshalYAML() (any, error) {
	return v.yamlNode(), nil
}

func (v Value) yamlNode() *yaml.Node {
	switch v.kind {
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
	case KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.arr {
			n.Content = append(n.Content, item.yamlNode())
		}
		return n
	case KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for p := v.obj.Oldest(); p != nil; p = p.Next() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
				p.Value.yamlNode())
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// JSON returns the tree as a JSON string, or "" if rendering fails
func (v Value) JSON() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// GetValue queries the tree with a gjson path.
//
// Keys produced by Decode that start with '@' or '#' must be escaped in
// paths; PathKey does that.
//
// Example:
//
//	v, _ := netconf.Decode(`<rpc-reply message-id="1"><data><x>5</x></data></rpc-reply>`)
//	v.GetValue("rpc-reply.data.x").String()                        // "5"
//	v.GetValue("rpc-reply." + netconf.PathKey("@message-id")).String() // "1"
func (v Value) GetValue(path string) gjson.Result {
	return gjson.Get(v.JSON(), path)
}

// PathKey escapes a single object key for use in a gjson path
func PathKey(key string) string {
	return gjson.Escape(key)
}
