// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package netconf provides a simple API for talking to network devices
// using NETCONF over SSH (RFC 6241, RFC 6242).
//
// Every call is a complete, self-contained exchange: connect, authenticate,
// open the "netconf" subsystem, read the device greeting, send our hello and
// the request as one chunk, read the reply, tear the session down. Sessions
// are never pooled or reused, and there is no retry.
//
// # Quick Start
//
//	client, err := netconf.NewClient(
//	    "192.168.1.1",
//	    netconf.Username("admin"),
//	    netconf.Password("secret"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	res, err := client.Get(ctx, `<interfaces xmlns="http://openconfig.net/yang/interfaces"/>`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Query the decoded reply using gjson
//	names := res.GetValue("rpc-reply.data.interfaces.interface.#.name").Array()
//
// For one-off calls the package-level Request and RequestValue take the
// connection descriptor directly:
//
//	raw, err := netconf.Request(ctx, "192.168.1.1", 830, "admin", "secret", body)
//
// # Framing
//
// Our hello announces base:1.1 only, so requests always use chunked framing.
// Replies are read until either the legacy "]]>]]>" marker or the "##"
// end-of-chunks marker; Unframe strips whichever framing was used.
//
// # Decoding
//
// Decode turns reply markup into a Value: objects keep document order,
// attributes become "@name" keys, element text next to attributes or
// children lives under "#text", CDATA under "#cdata", and repeated siblings
// become arrays. Every leaf stays a string.
//
// # Error Handling
//
// Pipeline failures are *Error values that match one of the sentinels
// ErrConnection, ErrAuthentication, ErrChannel, ErrIncompleteFrame or
// ErrDecode:
//
//	if errors.Is(err, netconf.ErrAuthentication) {
//	    // wrong credentials
//	}
//
// # Thread Safety
//
// A Client holds configuration only and is safe for concurrent use. Each
// call owns its session exclusively.
//
// # References
//
//   - NETCONF: https://www.rfc-editor.org/rfc/rfc6241
//   - NETCONF over SSH: https://www.rfc-editor.org/rfc/rfc6242
//   - gjson: https://github.com/tidwall/gjson
package netconf
