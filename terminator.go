// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

// Frame terminators recognized by the read loop
const (
	// EndOfMessage is the legacy (base:1.0) end-of-message marker
	EndOfMessage = "]]>]]>"

	// EndOfChunks is the chunked-framing (base:1.1) end-of-chunks marker
	EndOfChunks = "##"
)

// suffixMatcher reports when the bytes fed so far end with any of a fixed
// set of patterns. Each pattern keeps a KMP failure table and the length of
// its currently matched prefix, so every byte costs O(len(patterns)).
type suffixMatcher struct {
	patterns []string
	failure  [][]int
	matched  []int
}

func newSuffixMatcher(patterns ...string) *suffixMatcher {
	m := &suffixMatcher{
		patterns: patterns,
		failure:  make([][]int, len(patterns)),
		matched:  make([]int, len(patterns)),
	}
	for i, p := range patterns {
		m.failure[i] = failureTable(p)
	}
	return m
}

// newTerminatorMatcher matches both NETCONF frame terminators
func newTerminatorMatcher() *suffixMatcher {
	return newSuffixMatcher(EndOfMessage, EndOfChunks)
}

// failureTable returns, for every prefix p[:i+1], the length of its longest
// proper prefix that is also a suffix.
func failureTable(p string) []int {
	f := make([]int, len(p))
	k := 0
	for i := 1; i < len(p); i++ {
		for k > 0 && p[i] != p[k] {
			k = f[k-1]
		}
		if p[i] == p[k] {
			k++
		}
		f[i] = k
	}
	return f
}

// Feed advances the matcher by one byte and returns the pattern that the
// input now ends with, if any.
func (m *suffixMatcher) Feed(b byte) (string, bool) {
	hit := -1
	for i, p := range m.patterns {
		k := m.matched[i]
		if k == len(p) {
			k = m.failure[i][k-1]
		}
		for k > 0 && p[k] != b {
			k = m.failure[i][k-1]
		}
		if p[k] == b {
			k++
		}
		m.matched[i] = k
		if k == len(p) && hit < 0 {
			hit = i
		}
	}
	if hit < 0 {
		return "", false
	}
	return m.patterns[hit], true
}

// Reset forgets everything fed so far
func (m *suffixMatcher) Reset() {
	for i := range m.matched {
		m.matched[i] = 0
	}
}
