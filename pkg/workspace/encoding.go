// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

// UTF8 is the encoding operators use unless a task declares another one.
var UTF8 encoding.Encoding = unicode.UTF8

// Encoding looks up a text encoding by its WHATWG/IANA label, e.g.
// "utf-8", "latin1" or "shift_jis". An empty name yields UTF-8.
func Encoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, operrors.Configuration("unknown encoding "+name, err).WithContext("encoding", name)
	}
	return enc, nil
}
