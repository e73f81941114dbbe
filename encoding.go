// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Encoding constants for rendering decoded values
const (
	// EncodingJSON renders a Value as compact JSON (default)
	EncodingJSON = "json"

	// EncodingYAML renders a Value as YAML
	EncodingYAML = "yaml"
)

// ValidEncodings contains the list of valid encoding values
var ValidEncodings = []string{
	EncodingJSON,
	EncodingYAML,
}

// ValidateEncoding checks if the encoding is valid
//
// Returns an error if the encoding is not one of the supported values.
//
// Example:
//
//	if err := netconf.ValidateEncoding("yaml"); err != nil {
//	    log.Fatal(err)
//	}
func ValidateEncoding(enc string) error {
	for _, valid := range ValidEncodings {
		if enc == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid encoding: %s (valid values: json, yaml)", enc)
}

// Encode renders v in the given encoding; an empty encoding means JSON.
// Object member order is preserved in both encodings.
func (v Value) Encode(enc string) ([]byte, error) {
	if enc == "" {
		enc = EncodingJSON
	}
	if err := ValidateEncoding(enc); err != nil {
		return nil, err
	}
	if enc == EncodingYAML {
		return yaml.Marshal(v)
	}
	return v.MarshalJSON()
}
