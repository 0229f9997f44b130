// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// ReadFile loads a secret from path, trimming surrounding whitespace.
// Every heap copy of the file contents is zeroed before returning.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: reading %s: %w", path, err)
	}
	defer zero(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	return NewFromBytes(trimmed)
}

// FromString copies value into a Buffer. Strings are immutable, so the
// caller's copy cannot be zeroed; drop references to it afterwards.
func FromString(value string) (*Buffer, error) {
	if value == "" {
		return nil, errors.New("secret: empty value")
	}
	return NewFromBytes([]byte(value))
}
