// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MaxDecodeDepth bounds element nesting accepted by Decode
const MaxDecodeDepth = 256

const cdataOpen = "<![CDATA["

// Decode converts reply markup into a schema-free Value.
//
// The walk is depth-first. For every element:
//   - child elements are inserted into the element's node map under their
//     qualified name; a repeated name turns the entry into an Array
//   - text runs are trimmed and whitespace-only runs dropped
//   - a CDATA section is stored under "#cdata", the last one wins
//   - attributes become "@name" entries; a plain string content is folded
//     under "#text" next to them
//
// An element with children keeps its first text run under "#text" and
// drops the rest. An element without children is Null, a String, or an
// Array of Strings depending on how many text runs it has. Leaves are never
// coerced. Namespace prefixes are kept as written ("nc:rpc-reply").
//
// Example:
//
//	v, _ := netconf.Decode(`<r><c>1</c><c>2</c></r>`)
//	v.JSON() // {"r":{"c":["1","2"]}}
func Decode(markup string) (Value, error) {
	d := &decoder{
		src: markup,
		dec: xml.NewDecoder(strings.NewReader(markup)),
	}
	return d.document()
}

type decoder struct {
	src string
	dec *xml.Decoder
}

// next returns the following token together with the raw input it spans
func (d *decoder) next() (xml.Token, string, error) {
	start := d.dec.InputOffset()
	tok, err := d.dec.RawToken()
	if err != nil {
		return nil, "", err
	}
	return tok, d.src[start:d.dec.InputOffset()], nil
}

func (d *decoder) document() (Value, error) {
	top := newNodeBuilder()
	for {
		tok, raw, err := d.next()
		if errors.Is(err, io.EOF) {
			if top.members.Len() == 0 {
				return Value{}, d.errorf(nil, "no root element")
			}
			return Value{kind: KindObject, obj: top.members}, nil
		}
		if err != nil {
			return Value{}, d.errorf(err, "malformed markup")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			v, err := d.element(t, 1)
			if err != nil {
				return Value{}, err
			}
			top.insert(qualifiedName(t.Name), v)
		case xml.EndElement:
			return Value{}, d.errorf(nil, "unexpected end tag </%s>", qualifiedName(t.Name))
		case xml.CharData:
			if strings.HasPrefix(raw, cdataOpen) || strings.TrimSpace(string(t)) != "" {
				return Value{}, d.errorf(nil, "character data outside the root element")
			}
		}
		// comments, processing instructions and directives carry no structure
	}
}

// element decodes the subtree opened by start and applies its attributes
func (d *decoder) element(start xml.StartElement, depth int) (Value, error) {
	if depth > MaxDecodeDepth {
		return Value{}, d.errorf(nil, "element nesting exceeds %d levels", MaxDecodeDepth)
	}

	content, err := d.content(start, depth)
	if err != nil {
		return Value{}, err
	}
	if len(start.Attr) == 0 {
		return content, nil
	}

	attrs := newNodeBuilder()
	for _, a := range start.Attr {
		attrs.insert(AttrPrefix+qualifiedName(a.Name), String(a.Value))
	}
	switch content.kind {
	case KindString:
		attrs.insert(TextKey, content)
	case KindObject:
		for p := content.obj.Oldest(); p != nil; p = p.Next() {
			attrs.insert(p.Key, p.Value)
		}
	}
	return Value{kind: KindObject, obj: attrs.members}, nil
}

// content reads events up to the end tag matching start
func (d *decoder) content(start xml.StartElement, depth int) (Value, error) {
	name := qualifiedName(start.Name)
	b := newNodeBuilder()
	for {
		tok, raw, err := d.next()
		if errors.Is(err, io.EOF) {
			return Value{}, d.errorf(nil, "element <%s> is not terminated", name)
		}
		if err != nil {
			return Value{}, d.errorf(err, "malformed markup")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			v, err := d.element(t, depth+1)
			if err != nil {
				return Value{}, err
			}
			b.insert(qualifiedName(t.Name), v)
		case xml.EndElement:
			if end := qualifiedName(t.Name); end != name {
				return Value{}, d.errorf(nil, "end tag </%s> does not match <%s>", end, name)
			}
			return b.value(), nil
		case xml.CharData:
			if strings.HasPrefix(raw, cdataOpen) {
				b.members.Set(CDataKey, String(string(t)))
				continue
			}
			if s := strings.TrimSpace(string(t)); s != "" {
				b.texts = append(b.texts, s)
			}
		}
	}
}

func (d *decoder) errorf(cause error, format string, args ...any) error {
	return &Error{
		Kind:        KindDecode,
		Operation:   "decode",
		Message:     fmt.Sprintf(format, args...),
		InternalMsg: fmt.Sprintf("at byte offset %d", d.dec.InputOffset()),
		Err:         cause,
	}
}

// nodeBuilder collects one element's node map and text runs
type nodeBuilder struct {
	members *orderedmap.OrderedMap[string, Value]
	texts   []string
}

func newNodeBuilder() *nodeBuilder {
	return &nodeBuilder{members: orderedmap.New[string, Value]()}
}

func (b *nodeBuilder) insert(key string, v Value) {
	existing, ok := b.members.Get(key)
	b.members.Set(key, merge(existing, ok, v))
}

// value applies the element-end rule
func (b *nodeBuilder) value() Value {
	if b.members.Len() > 0 {
		if len(b.texts) > 0 {
			b.insert(TextKey, String(b.texts[0]))
		}
		return Value{kind: KindObject, obj: b.members}
	}
	switch len(b.texts) {
	case 0:
		return Null()
	case 1:
		return String(b.texts[0])
	default:
		arr := make([]Value, len(b.texts))
		for i, s := range b.texts {
			arr[i] = String(s)
		}
		return Value{kind: KindArray, arr: arr}
	}
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
