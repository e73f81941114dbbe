// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Command ncexporter serves transceiver optics read over NETCONF as JSON
// and prometheus gauges, and runs one-shot NETCONF requests.
package main

func main() {
	Execute()
}
