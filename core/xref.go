package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoXRefTable is returned when startxref is missing or points at
// something other than a classic cross-reference table, such as a
// cross-reference stream.
var ErrNoXRefTable = errors.New("no cross-reference table")

// XRefEntry is one line of a classic cross-reference table.
type XRefEntry struct {
	Number     uint32
	Offset     int64 // byte offset, or the next free number for a free entry
	Generation uint16
	InUse      bool
}

// XRefTable is one cross-reference section and the trailer that follows it.
type XRefTable struct {
	Entries []XRefEntry // in file order
	Trailer Dict
}

// Free returns the references a free entry offers for reuse. Object 0 and
// entries whose generation is exhausted are left out.
func (t *XRefTable) Free() []Reference {
	var refs []Reference
	for _, e := range t.Entries {
		if !e.InUse && e.Number > 0 && e.Generation < 65535 {
			refs = append(refs, Reference{Number: e.Number, Generation: e.Generation})
		}
	}
	return refs
}

// startxrefWindow is how far from the end of the file startxref is searched.
const startxrefWindow = 1024

// FindXRef returns the offset named by the last startxref keyword near the
// end of data.
func FindXRef(data []byte) (int64, error) {
	tail := data[max(0, len(data)-startxrefWindow):]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("%w: startxref not found", ErrNoXRefTable)
	}

	fields := bytes.Fields(tail[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: startxref has no offset", ErrNoXRefTable)
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil || offset < 0 || offset >= int64(len(data)) {
		return 0, fmt.Errorf("%w: invalid startxref offset %q", ErrNoXRefTable, fields[0])
	}
	return offset, nil
}

// ParseXRef parses the classic table at offset, including its trailer.
func ParseXRef(data []byte, offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("%w: offset %d out of range", ErrNoXRefTable, offset)
	}

	pos := int(offset)
	line, pos := nextLine(data, pos)
	if string(bytes.TrimSpace(line)) != "xref" {
		return nil, fmt.Errorf("%w at offset %d", ErrNoXRefTable, offset)
	}

	table := &XRefTable{}
	for pos < len(data) {
		start := pos
		line, pos = nextLine(data, pos)
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, []byte("trailer")) {
			p := NewParserAt(bytes.NewReader(data[start:]), int64(start))
			dict, err := p.ParseTrailer()
			if err != nil {
				return nil, err
			}
			table.Trailer = dict
			return table, nil
		}

		// Subsection header: first object number and entry count.
		fields := bytes.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid xref subsection header %q", line)
		}
		first, err1 := strconv.ParseUint(string(fields[0]), 10, 32)
		count, err2 := strconv.ParseUint(string(fields[1]), 10, 32)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid xref subsection header %q", line)
		}

		if count > 0 {
			if err := CheckObjectNumber(first + count - 1); err != nil {
				return nil, fmt.Errorf("xref subsection %q: %w", line, err)
			}
		}

		for i := uint64(0); i < count; i++ {
			if pos >= len(data) {
				return nil, errors.New("unexpected end of xref subsection")
			}
			line, pos = nextLine(data, pos)
			entry, err := parseXRefEntry(line)
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", first+i, err)
			}
			entry.Number = uint32(first + i)
			table.Entries = append(table.Entries, entry)
		}
	}
	return nil, errors.New("xref table missing trailer")
}

// ParseXRefChain parses the newest table and the older ones its /Prev
// entries name, newest first. A /Prev loop ends the chain.
func ParseXRefChain(data []byte) ([]*XRefTable, error) {
	offset, err := FindXRef(data)
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for !seen[offset] {
		seen[offset] = true
		table, err := ParseXRef(data, offset)
		if err != nil {
			return tables, err
		}
		tables = append(tables, table)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return tables, nil
}

// parseXRefEntry parses "nnnnnnnnnn ggggg n". The fixed 20-byte layout is
// often violated, so fields are split on whitespace.
func parseXRefEntry(line []byte) (XRefEntry, error) {
	fields := bytes.Fields(line)
	if len(fields) != 3 {
		return XRefEntry{}, fmt.Errorf("invalid xref entry %q", line)
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return XRefEntry{}, fmt.Errorf("invalid xref offset %q", fields[0])
	}
	gen, err := strconv.ParseUint(string(fields[1]), 10, 16)
	if err != nil {
		return XRefEntry{}, fmt.Errorf("invalid xref generation %q", fields[1])
	}

	entry := XRefEntry{Offset: offset, Generation: uint16(gen)}
	switch string(fields[2]) {
	case "n":
		entry.InUse = true
	case "f":
	default:
		return XRefEntry{}, fmt.Errorf("invalid xref flag %q", fields[2])
	}
	return entry, nil
}

// nextLine returns the line starting at pos without its end-of-line marker,
// and the position after the marker. LF, CR LF and a lone CR end a line.
func nextLine(data []byte, pos int) ([]byte, int) {
	end := pos
	for end < len(data) && data[end] != '\n' && data[end] != '\r' {
		end++
	}
	next := end
	if next < len(data) && data[next] == '\r' {
		next++
	}
	if next < len(data) && data[next] == '\n' {
		next++
	}
	return data[pos:end], next
}
