// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"encoding/xml"
	"strings"

	"github.com/google/uuid"
)

// BaseNamespace is the NETCONF base XML namespace
const BaseNamespace = "urn:ietf:params:xml:ns:netconf:base:1.0"

// NewRPC wraps an operation element in an <rpc> envelope
//
// The message-id is a random UUID unless MessageID is given. The operation
// is inserted verbatim.
//
// Example:
//
//	body := netconf.NewRPC("<get-config><source><running/></source></get-config>",
//	    netconf.MessageID("101"))
func NewRPC(operation string, mods ...func(*Req)) string {
	req := newReq(mods)
	id := req.MessageID
	if id == "" {
		id = uuid.NewString()
	}

	var b strings.Builder
	b.Grow(len(operation) + len(id) + 96)
	b.WriteString(`<rpc message-id="`)
	_ = xml.EscapeText(&b, []byte(id))
	b.WriteString(`" xmlns="`)
	b.WriteString(BaseNamespace)
	b.WriteString(`">`)
	b.WriteString(operation)
	b.WriteString(`</rpc>`)
	return b.String()
}

// GetRPC builds a <get> operation with a subtree filter. An empty filter
// retrieves everything.
func GetRPC(filter string, mods ...func(*Req)) string {
	if strings.TrimSpace(filter) == "" {
		return NewRPC("<get/>", mods...)
	}
	return NewRPC(`<get><filter type="subtree">`+filter+`</filter></get>`, mods...)
}
