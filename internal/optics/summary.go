// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package optics turns openconfig transceiver state read over NETCONF into
// a compact JSON summary and prometheus gauges.
package optics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/netascode/go-netconf"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TransceiverFilter selects the transceiver subtree of every platform
// component
const TransceiverFilter = `<components xmlns="http://openconfig.net/yang/platform">` +
	`<component><transceiver xmlns="http://openconfig.net/yang/platform/transceiver"/></component>` +
	`</components>`

// Presence values of transceiver/state/present
const (
	Present    = "PRESENT"
	NotPresent = "NOT_PRESENT"
)

// ErrRPCError reports a reply that carries <rpc-error> instead of data
var ErrRPCError = errors.New("device returned rpc-error")

// inventory leaves copied from transceiver/state for a present module
var inventory = []string{"serial-no", "vendor", "vendor-part", "vendor-rev"}

// Summarize reduces a decoded <get> reply to a JSON array with one object
// per component:
//
//	[{"name":"Ethernet1","present-state":"PRESENT","serial-no":"...",
//	  "vendor":"...","vendor-part":"...","vendor-rev":"...",
//	  "channel":[{"index":"0","input-power":{"instant":"-2.1",...},...}]},
//	 {"name":"Ethernet2","present-state":"NOT_PRESENT"}]
//
// Missing inventory leaves are left out. A reply without components yields
// an empty array; a reply carrying rpc-errors yields ErrRPCError. Namespace
// prefixes on the envelope and container names are ignored.
func Summarize(v netconf.Value) (string, error) {
	if rpcErrs := netconf.RPCErrors(v); len(rpcErrs) > 0 {
		msgs := make([]string, 0, len(rpcErrs))
		for _, e := range rpcErrs {
			msgs = append(msgs, fmt.Sprintf("%s/%s: %s", e.Type, e.Tag, e.Message))
		}
		return "", fmt.Errorf("%w: %s", ErrRPCError, strings.Join(msgs, "; "))
	}

	reply := child(gjson.Parse(v.JSON()), "rpc-reply")
	if !reply.Exists() {
		return "", fmt.Errorf("not an rpc-reply document")
	}

	out := "[]"
	var err error
	components := child(child(child(reply, "data"), "components"), "component")
	for _, comp := range each(components) {
		obj, cerr := summarizeComponent(comp)
		if cerr != nil {
			return "", cerr
		}
		if out, err = sjson.SetRaw(out, "-1", obj); err != nil {
			return "", fmt.Errorf("failed to append component: %w", err)
		}
	}
	return out, nil
}

func summarizeComponent(comp gjson.Result) (string, error) {
	obj, err := sjson.Set("{}", "name", comp.Get("name").String())
	if err != nil {
		return "", err
	}

	state := comp.Get("transceiver.state")
	if state.Get("present").String() != Present {
		return sjson.Set(obj, "present-state", NotPresent)
	}
	if obj, err = sjson.Set(obj, "present-state", Present); err != nil {
		return "", err
	}
	for _, leaf := range inventory {
		if r := state.Get(leaf); r.Exists() {
			if obj, err = sjson.Set(obj, leaf, r.String()); err != nil {
				return "", err
			}
		}
	}

	channels := each(comp.Get("transceiver.physical-channels.channel"))
	if len(channels) == 0 {
		return obj, nil
	}
	list := "[]"
	for _, ch := range channels {
		st := ch.Get("state")
		raw := "{}"
		if st.IsObject() {
			raw = st.Raw
		}
		if list, err = sjson.SetRaw(list, "-1", raw); err != nil {
			return "", err
		}
	}
	return sjson.SetRaw(obj, "channel", list)
}

// child looks up name in an object, accepting any namespace prefix
func child(r gjson.Result, name string) gjson.Result {
	if got := r.Get(netconf.PathKey(name)); got.Exists() {
		return got
	}
	var found gjson.Result
	r.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if i := strings.LastIndexByte(k, ':'); i >= 0 && k[i+1:] == name && !strings.HasPrefix(k, netconf.AttrPrefix) {
			found = value
			return false
		}
		return true
	})
	return found
}

// each flattens a repeated element: one object or an array of them
func each(r gjson.Result) []gjson.Result {
	switch {
	case r.IsArray():
		return r.Array()
	case r.IsObject():
		return []gjson.Result{r}
	default:
		return nil
	}
}
