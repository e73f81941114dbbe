// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Res represents a NETCONF reply
type Res struct {
	// Raw is the reply frame exactly as read, terminator included
	Raw string

	// Timestamp is the time the reply was complete (nanoseconds since Unix epoch)
	Timestamp int64
}

// Markup returns the reply markup with the framing removed
func (r Res) Markup() (string, error) {
	return Unframe(r.Raw)
}

// Decode removes the framing and converts the markup into a Value
//
// Example:
//
//	res, err := client.Get(ctx, filter)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := res.Decode()
func (r Res) Decode() (Value, error) {
	markup, err := r.Markup()
	if err != nil {
		return Value{}, err
	}
	return Decode(markup)
}

// JSON returns the decoded reply as a JSON string.
// Returns an empty string if the reply cannot be decoded.
func (r Res) JSON() string {
	v, err := r.Decode()
	if err != nil {
		return ""
	}
	return v.JSON()
}

// GetValue retrieves a value from the decoded reply using a gjson path.
//
// Attribute and text keys start with '@' or '#' and must be escaped.
//
// Example paths:
//   - "rpc-reply.data.components.component.#.name" - all component names
//   - "rpc-reply.@message-id" - the echoed message-id (escaped as rpc-reply.\@message-id)
//
// Example:
//
//	res, _ := client.Get(ctx, filter)
//	names := res.GetValue("rpc-reply.data.components.component.#.name").Array()
func (r Res) GetValue(path string) gjson.Result {
	jsonStr := r.JSON()
	if jsonStr == "" {
		return gjson.Result{}
	}
	return gjson.Get(jsonStr, path)
}

// RPCErrors returns the <rpc-error> entries carried by the reply, in order.
// A reply without errors yields an empty slice.
func (r Res) RPCErrors() ([]ErrorModel, error) {
	v, err := r.Decode()
	if err != nil {
		return nil, err
	}
	return RPCErrors(v), nil
}

// RPCErrors collects the <rpc-error> entries of a decoded reply. Namespace
// prefixes on element names are ignored.
func RPCErrors(v Value) []ErrorModel {
	reply, ok := member(v, "rpc-reply")
	if !ok {
		return nil
	}
	raw, ok := member(reply, "rpc-error")
	if !ok {
		return nil
	}

	entries := []Value{raw}
	if raw.Kind() == KindArray {
		entries = raw.Items()
	}
	errs := make([]ErrorModel, 0, len(entries))
	for _, e := range entries {
		errs = append(errs, ErrorModel{
			Type:     leafText(e, "error-type"),
			Tag:      leafText(e, "error-tag"),
			Severity: leafText(e, "error-severity"),
			Message:  leafText(e, "error-message"),
			Path:     leafText(e, "error-path"),
		})
	}
	return errs
}

// member looks up key in an Object, accepting any namespace prefix
func member(v Value, key string) (Value, bool) {
	if got, ok := v.Get(key); ok {
		return got, true
	}
	for _, m := range v.Members() {
		if i := strings.LastIndexByte(m.Key, ':'); i >= 0 && m.Key[i+1:] == key && !strings.HasPrefix(m.Key, AttrPrefix) {
			return m.Value, true
		}
	}
	return Value{}, false
}

// leafText returns the text of a child leaf, whether plain or attributed
func leafText(v Value, key string) string {
	leaf, ok := member(v, key)
	if !ok {
		return ""
	}
	if s, ok := leaf.Str(); ok {
		return s
	}
	if t, ok := leaf.Get(TextKey); ok {
		s, _ := t.Str()
		return s
	}
	return ""
}
