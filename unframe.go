// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"fmt"
	"strconv"
	"strings"
)

// maxChunkSize is the largest chunk-size RFC 6242 allows (2^32-1)
const maxChunkSize = 4294967295

// Unframe strips the framing from a frame returned by the read loop.
//
// A frame ending in the legacy marker loses the marker. Anything else is
// parsed as chunked framing: a sequence of "\n#<size>\n<data>" chunks closed
// by "\n##" (the trailing newline is optional because the read loop stops
// right after "##"). The chunk data is returned concatenated.
//
// A chunk that promises more bytes than the frame holds yields an
// IncompleteFrame error; any other framing violation yields a DecodeError.
func Unframe(raw string) (string, error) {
	if strings.HasSuffix(raw, EndOfMessage) {
		return strings.TrimSuffix(raw, EndOfMessage), nil
	}

	var out strings.Builder
	rest := raw
	for {
		if !strings.HasPrefix(rest, "\n#") {
			return "", unframeError("missing chunk header", len(raw)-len(rest))
		}
		rest = rest[2:]

		if strings.HasPrefix(rest, "#") {
			tail := rest[1:]
			if tail != "" && tail != "\n" {
				return "", unframeError("data after end-of-chunks marker", len(raw)-len(tail))
			}
			return out.String(), nil
		}

		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return "", &Error{
				Kind:      KindIncompleteFrame,
				Operation: "unframe",
				Message:   "chunk header not terminated",
			}
		}
		size, err := parseChunkSize(rest[:nl])
		if err != nil {
			return "", unframeError(err.Error(), len(raw)-len(rest))
		}
		rest = rest[nl+1:]

		if size > len(rest) {
			return "", &Error{
				Kind:        KindIncompleteFrame,
				Operation:   "unframe",
				Message:     "chunk shorter than its declared size",
				InternalMsg: fmt.Sprintf("declared %d bytes, %d available", size, len(rest)),
			}
		}
		out.WriteString(rest[:size])
		rest = rest[size:]
	}
}

// parseChunkSize accepts 1*DIGIT without leading zeros, in 1..2^32-1
func parseChunkSize(s string) (int, error) {
	if s == "" || s[0] == '0' {
		return 0, fmt.Errorf("invalid chunk size %q", truncateForError(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid chunk size %q", truncateForError(s))
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n > maxChunkSize {
		return 0, fmt.Errorf("chunk size out of range %q", truncateForError(s))
	}
	return int(n), nil
}

func unframeError(msg string, offset int) error {
	return &Error{
		Kind:        KindDecode,
		Operation:   "unframe",
		Message:     msg,
		InternalMsg: fmt.Sprintf("at byte offset %d", offset),
	}
}

// truncateForError truncates a string for error messages
//
// Returns the first 100 characters followed by "..." if longer.
func truncateForError(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:100] + "..."
}
