// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import "time"

// Req represents a NETCONF request modifier
//
// This struct is used to apply request-specific options via functional modifiers.
// The request body itself is passed directly to methods.
//
// Example:
//
//	res, err := client.Get(ctx, filter,
//	    netconf.MessageID("101"),
//	    netconf.Timeout(30*time.Second))
type Req struct {
	// Timeout is the request-specific timeout
	// Overrides client default timeout if set
	Timeout time.Duration

	// MessageID is the message-id attribute of the generated <rpc> element
	MessageID string
}

func newReq(mods []func(*Req)) *Req {
	req := &Req{}
	for _, mod := range mods {
		mod(req)
	}
	return req
}
