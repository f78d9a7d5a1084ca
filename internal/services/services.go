// Package services resolves (port, protocol) pairs to well-known service names.
//
// The reference data uses the nmap-services layout, one entry per line:
//
//	name<TAB>port/protocol<TAB>frequency[<TAB># comment]
//
// A default table is embedded in the binary. A Table is read-only once
// loaded and safe to share.
package services

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Unknown is the service name assigned when resolution fails.
const Unknown = "unknown"

//go:embed nmap-services
var defaultData string

// Entry is a single row of the reference table.
type Entry struct {
	Port      uint16
	Protocol  string
	Name      string
	Frequency float64
}

type key struct {
	port  uint16
	proto string
}

// Table maps (port, protocol) to a canonical service name.
type Table struct {
	entries map[key]Entry
}

// Default returns the embedded reference table.
func Default() *Table {
	t, err := Load(strings.NewReader(defaultData))
	if err != nil {
		panic(fmt.Sprintf("embedded service table is invalid: %v", err))
	}
	return t
}

// LoadFile reads a reference table from an nmap-services formatted file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to open service table: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load service table %s: %w", path, err)
	}
	return t, nil
}

// Load parses an nmap-services formatted table. Blank lines and
// comments are ignored. When a (port, protocol) pair repeats, the first
// entry wins.
func Load(r io.Reader) (*Table, error) {
	t := &Table{entries: make(map[key]Entry)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		entry, err := parseEntry(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		k := key{port: entry.Port, proto: entry.Protocol}
		if _, exists := t.entries[k]; !exists {
			t.entries[k] = entry
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read service table: %w", err)
	}

	return t, nil
}

func parseEntry(fields []string) (Entry, error) {
	if len(fields) < 2 {
		return Entry{}, fmt.Errorf("expected name and port/protocol, got %q", strings.Join(fields, " "))
	}

	portSpec, proto, ok := strings.Cut(fields[1], "/")
	if !ok || proto == "" {
		return Entry{}, fmt.Errorf("invalid port/protocol %q", fields[1])
	}
	port, err := strconv.ParseUint(portSpec, 10, 16)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid port %q: %w", portSpec, err)
	}
	if port == 0 {
		return Entry{}, fmt.Errorf("invalid port %q: must be 1-65535", portSpec)
	}

	entry := Entry{
		Port:     uint16(port),
		Protocol: strings.ToLower(proto),
		Name:     fields[0],
	}
	if len(fields) > 2 {
		freq, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid frequency %q: %w", fields[2], err)
		}
		entry.Frequency = freq
	}

	return entry, nil
}

// Lookup returns the service name registered for port/protocol, or
// Unknown when the pair is absent. It never fails.
func (t *Table) Lookup(port uint16, protocol string) string {
	if t == nil {
		return Unknown
	}
	if entry, ok := t.entries[key{port: port, proto: strings.ToLower(protocol)}]; ok {
		return entry.Name
	}
	return Unknown
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns all entries ordered by port, then protocol.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Port != out[j].Port {
			return out[i].Port < out[j].Port
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}
