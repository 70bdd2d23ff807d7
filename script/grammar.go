// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package script parses and runs 1-wire master scripts.
//
// A script is a list of statements, separated by whitespace, new lines or
// semicolons:
//
//	reset                     # reset pulse, fails without presence
//	search [alarm]            # enumerate the devices
//	match 0x2800000000cafe42  # select a device
//	skip                      # select the only device
//	write f2 00               # send hex bytes
//	read 4                    # read n bytes
//	expect 01020304           # compare the last read
//	crc                       # check the inverted CRC-16 and send it back
//
// The CRC-16 covers every byte written or read since the last match or
// skip.
package script

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s;]+`},
	{Name: "Address", Pattern: `0[xX][0-9a-fA-F]{16}\b`},
	{Name: "Keyword", Pattern: `\b(?:reset|search|alarm|match|skip|write|read|expect|crc)\b`},
	{Name: "Number", Pattern: `[0-9a-fA-F]+\b`},
})

// Program is a parsed script.
type Program struct {
	Statements []*Statement `@@*`
}

// Statement is one line of a script.
type Statement struct {
	Pos lexer.Position

	Reset  bool     `(  @"reset"`
	Search *Search  ` | @@`
	Match  string   ` | "match" @Address`
	Skip   bool     ` | @"skip"`
	Write  []string ` | "write" @Number+`
	Read   string   ` | "read" @Number`
	CRC    bool     ` | @"crc"`
	Expect []string ` | "expect" @Number+ )`
}

// Search enumerates the devices.
type Search struct {
	Alarm bool `"search" @"alarm"?`
}

var parser = participle.MustBuild[Program](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
)

// Parse parses and validates a script.
func Parse(r io.Reader) (*Program, error) {
	p, err := parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return p, p.validate()
}

// ParseString parses and validates a script.
func ParseString(src string) (*Program, error) {
	p, err := parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return p, p.validate()
}

func (p *Program) validate() error {
	for _, s := range p.Statements {
		var err error
		switch {
		case s.Match != "":
			_, err = address(s.Match)
		case s.Write != nil:
			_, err = hexBytes(s.Write)
		case s.Read != "":
			_, err = count(s.Read)
		case s.Expect != nil:
			_, err = hexBytes(s.Expect)
		}
		if err != nil {
			return fmt.Errorf("script: %s: %w", s.Pos, err)
		}
	}
	return nil
}

func address(s string) (uint64, error) {
	return strconv.ParseUint(strings.ToLower(s)[2:], 16, 64)
}

func hexBytes(words []string) ([]byte, error) {
	var out []byte
	for _, w := range words {
		b, err := hex.DecodeString(w)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q", w)
		}
		out = append(out, b...)
	}
	return out, nil
}

func count(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 0x10000 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}
