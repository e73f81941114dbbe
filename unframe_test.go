// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"errors"
	"testing"
)

// TestUnframe verifies removal of both framings
func TestUnframe(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "legacy marker",
			raw:  "<rpc-reply/>]]>]]>",
			want: "<rpc-reply/>",
		},
		{
			name: "single chunk without trailing newline",
			raw:  "\n#12\n<rpc-reply/>\n##",
			want: "<rpc-reply/>",
		},
		{
			name: "single chunk with trailing newline",
			raw:  "\n#12\n<rpc-reply/>\n##\n",
			want: "<rpc-reply/>",
		},
		{
			name: "multiple chunks",
			raw:  "\n#4\n<rpc\n#8\n-reply/>\n##",
			want: "<rpc-reply/>",
		},
		{
			name: "chunk data containing hashes",
			raw:  "\n#6\n<a>#</\n#2\na>\n##",
			want: "<a>#</a>",
		},
		{
			name:    "chunk shorter than declared",
			raw:     "\n#100\n<rpc-reply/>\n##",
			wantErr: ErrIncompleteFrame,
		},
		{
			name:    "unterminated chunk header",
			raw:     "\n#12",
			wantErr: ErrIncompleteFrame,
		},
		{
			name:    "missing chunk header",
			raw:     "<rpc-reply/>##",
			wantErr: ErrDecode,
		},
		{
			name:    "leading zero chunk size",
			raw:     "\n#012\n<rpc-reply/>\n##",
			wantErr: ErrDecode,
		},
		{
			name:    "non-numeric chunk size",
			raw:     "\n#abc\n<rpc-reply/>\n##",
			wantErr: ErrDecode,
		},
		{
			name:    "chunk size out of range",
			raw:     "\n#4294967296\nx\n##",
			wantErr: ErrDecode,
		},
		{
			name:    "data after end of chunks",
			raw:     "\n#1\nx\n##garbage",
			wantErr: ErrDecode,
		},
		{
			name:    "empty frame",
			raw:     "",
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unframe(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Unframe() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unframe() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Unframe() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestUnframe_RoundTripsFrameRequest verifies our own request body can be
// recovered from the chunk that follows Hello
func TestUnframe_RoundTripsFrameRequest(t *testing.T) {
	body := `<rpc message-id="1"><get/></rpc>`
	frame := string(FrameRequest(body))[len(Hello):]

	got, err := Unframe(frame)
	if err != nil {
		t.Fatalf("Unframe() error = %v", err)
	}
	if got != body {
		t.Errorf("Unframe() = %q, want %q", got, body)
	}
}

// TestTruncateForError verifies long values are shortened
func TestTruncateForError(t *testing.T) {
	short := "short"
	if got := truncateForError(short); got != short {
		t.Errorf("truncateForError(%q) = %q", short, got)
	}
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateForError(string(long))
	if len(got) != 103 {
		t.Errorf("len = %d, want 103", len(got))
	}
}
