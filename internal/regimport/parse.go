package regimport

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/woa-project/usbfnswitch/internal/registry"
)

const (
	headerV5 = "Windows Registry Editor Version 5.00"
	headerV4 = "REGEDIT4"
)

// File is a parsed registry export.
type File struct {
	Keys []Key
}

// Key is one [section] of an export. Path keeps the hive element.
type Key struct {
	Path   string
	Values []registry.Value
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
)

// decodeText converts an export to UTF-8. regedit writes UTF-16LE with a BOM;
// hand-written files are usually UTF-8.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, utf16LEBOM):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("regimport: decode utf-16: %w", err)
		}
		return string(out), nil
	case bytes.HasPrefix(data, utf8BOM):
		return string(data[len(utf8BOM):]), nil
	}
	return string(data), nil
}

// Parse reads a .reg export. Only string, dword and multi-string values are
// accepted; deletions and binary values are rejected.
func Parse(data []byte) (*File, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	lines, err := logicalLines(text)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 || (lines[0].text != headerV5 && lines[0].text != headerV4) {
		return nil, fmt.Errorf("regimport: missing registry editor header")
	}

	f := &File{}
	var current *Key
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line.text, "[-"):
			return nil, fmt.Errorf("regimport: line %d: key deletion not supported", line.no)
		case strings.HasPrefix(line.text, "["):
			if !strings.HasSuffix(line.text, "]") {
				return nil, fmt.Errorf("regimport: line %d: unterminated key header", line.no)
			}
			path := registry.Clean(line.text[1 : len(line.text)-1])
			if path == "" {
				return nil, fmt.Errorf("regimport: line %d: empty key path", line.no)
			}
			f.Keys = append(f.Keys, Key{Path: path})
			current = &f.Keys[len(f.Keys)-1]
		default:
			if current == nil {
				return nil, fmt.Errorf("regimport: line %d: value outside of a key", line.no)
			}
			value, err := parseValue(line.text)
			if err != nil {
				return nil, fmt.Errorf("regimport: line %d: %w", line.no, err)
			}
			current.Values = append(current.Values, value)
		}
	}
	return f, nil
}

type logicalLine struct {
	no   int
	text string
}

// logicalLines joins backslash continuations and drops blanks and comments.
func logicalLines(text string) ([]logicalLine, error) {
	var (
		out     []logicalLine
		pending strings.Builder
		start   int
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	no := 0
	for sc.Scan() {
		no++
		raw := strings.TrimRight(sc.Text(), " \t\r")
		if pending.Len() == 0 {
			raw = strings.TrimSpace(raw)
			if raw == "" || strings.HasPrefix(raw, ";") {
				continue
			}
			start = no
		} else {
			raw = strings.TrimLeft(raw, " \t")
		}

		if strings.HasSuffix(raw, `\`) {
			pending.WriteString(strings.TrimSuffix(raw, `\`))
			continue
		}
		pending.WriteString(raw)
		out = append(out, logicalLine{no: start, text: pending.String()})
		pending.Reset()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("regimport: read lines: %w", err)
	}
	if pending.Len() > 0 {
		return nil, fmt.Errorf("regimport: line %d: continuation at end of file", start)
	}
	return out, nil
}

func parseValue(line string) (registry.Value, error) {
	var (
		name string
		rest string
		err  error
	)
	switch {
	case strings.HasPrefix(line, "@"):
		rest = line[1:]
	case strings.HasPrefix(line, `"`):
		name, rest, err = unquote(line)
		if err != nil {
			return registry.Value{}, err
		}
	default:
		return registry.Value{}, fmt.Errorf("expected value name in %q", line)
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "=") {
		return registry.Value{}, fmt.Errorf("expected '=' after value name %q", name)
	}
	data := strings.TrimSpace(rest[1:])

	switch {
	case data == "-":
		return registry.Value{}, fmt.Errorf("value deletion not supported (%q)", name)
	case strings.HasPrefix(data, `"`):
		s, tail, err := unquote(data)
		if err != nil {
			return registry.Value{}, err
		}
		if strings.TrimSpace(tail) != "" {
			return registry.Value{}, fmt.Errorf("trailing data after string value %q", name)
		}
		return registry.Value{Name: name, Kind: registry.KindString, String: s}, nil
	case hasPrefixFold(data, "dword:"):
		n, err := strconv.ParseUint(strings.TrimSpace(data[len("dword:"):]), 16, 32)
		if err != nil {
			return registry.Value{}, fmt.Errorf("invalid dword for %q: %w", name, err)
		}
		return registry.Value{Name: name, Kind: registry.KindDWord, Int: int32(uint32(n))}, nil
	case hasPrefixFold(data, "hex(7):"):
		raw, err := parseHexBytes(data[len("hex(7):"):])
		if err != nil {
			return registry.Value{}, fmt.Errorf("invalid multi-string for %q: %w", name, err)
		}
		strs, err := decodeMultiString(raw)
		if err != nil {
			return registry.Value{}, fmt.Errorf("invalid multi-string for %q: %w", name, err)
		}
		return registry.Value{Name: name, Kind: registry.KindMultiSZ, Strings: strs}, nil
	}
	return registry.Value{}, fmt.Errorf("unsupported data type for %q", name)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// unquote reads a double-quoted string with regedit escapes (\\ and \")
// from the start of s and returns the remainder.
func unquote(s string) (value, rest string, err error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("dangling escape in %q", s)
			}
			i++
			b.WriteByte(s[i])
		case '"':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated string %q", s)
}

func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b, err := hex.DecodeString(part)
		if err != nil || len(b) != 1 {
			return nil, fmt.Errorf("bad byte %q", part)
		}
		out = append(out, b[0])
	}
	return out, nil
}

// decodeMultiString splits a REG_MULTI_SZ payload: UTF-16LE strings each
// terminated by NUL, the list terminated by an empty string.
func decodeMultiString(raw []byte) ([]string, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("odd byte count %d", len(raw))
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	text, err := dec.Bytes(raw)
	if err != nil {
		return nil, err
	}
	strs := []string{}
	for _, s := range strings.Split(string(text), "\x00") {
		if s == "" {
			break
		}
		strs = append(strs, s)
	}
	return strs, nil
}
