package writer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tsawler/pdfstore/core"
	"github.com/tsawler/pdfstore/store"
)

// ErrNoTrailer is returned when Write is called without a trailer.
var ErrNoTrailer = errors.New("writer: trailer is required")

// Option configures Write
type Option func(*writer)

// WithVersion sets the version written in the header (default: 1.7)
func WithVersion(major, minor int) Option {
	return func(w *writer) {
		w.version = fmt.Sprintf("%d.%d", major, minor)
	}
}

// WithCompression flate-compresses streams that carry no filter, when that
// makes them smaller. The store's streams are not modified.
func WithCompression() Option {
	return func(w *writer) {
		w.compress = true
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(w *writer) {
		w.logger = logger
	}
}

type writer struct {
	version  string
	compress bool
	logger   *slog.Logger

	out     *countingWriter
	offsets map[uint32]int64
	gens    map[uint32]uint16
}

// Stats describes what Write produced.
type Stats struct {
	Objects    int   // objects written
	Compressed int   // streams compressed on the way out
	Skipped    int   // entries whose number was already written
	Size       int64 // bytes written
}

// Write serializes the objects of s, in store order, followed by a classic
// cross-reference table and trailer. Numbers without an object are written
// as free entries. When two entries share an object number only the first is
// written; object number 0 is never written. Nothing is written when an
// object number exceeds core.MaxObjectNumber. The trailer's /Size is set and file layout entries such as /Prev
// are dropped.
func Write(dst io.Writer, s *store.Store, trailer *store.Object, opts ...Option) (*Stats, error) {
	if trailer == nil {
		return nil, ErrNoTrailer
	}
	w := &writer{
		version: "1.7",
		logger:  slog.Default(),
		offsets: make(map[uint32]int64),
		gens:    make(map[uint32]uint16),
	}
	for _, opt := range opts {
		opt(w)
	}
	for obj := range s.All() {
		if err := core.CheckObjectNumber(uint64(obj.Reference().Number)); err != nil {
			return nil, fmt.Errorf("writing object %v: %w", obj.Reference(), err)
		}
	}

	bw := bufio.NewWriter(dst)
	w.out = &countingWriter{w: bw}
	stats := &Stats{}

	// The binary comment marks the file as binary for transfer tools.
	fmt.Fprintf(w.out, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", w.version)

	for obj := range s.All() {
		ref := obj.Reference()
		if ref.Number == 0 {
			stats.Skipped++
			w.logger.Warn("skipping object number 0, reserved for the free list head", "ref", ref.String())
			continue
		}
		if _, dup := w.offsets[ref.Number]; dup {
			stats.Skipped++
			w.logger.Warn("skipping duplicate object number", "ref", ref.String())
			continue
		}
		compressed, err := w.writeObject(obj)
		if err != nil {
			return nil, fmt.Errorf("writing object %v: %w", ref, err)
		}
		if compressed {
			stats.Compressed++
		}
		stats.Objects++
	}

	xrefOffset := w.out.n
	size := w.writeXRef(s.FreeObjects())

	trailerDict, ok := trailer.Dict()
	if !ok {
		return nil, fmt.Errorf("trailer is %T, expected Dict", trailer.Value())
	}
	dict := core.Clone(trailerDict).(core.Dict)
	for _, key := range []string{"Prev", "XRefStm", "Type", "W", "Index", "Length", "Filter", "DecodeParms"} {
		dict.Delete(key)
	}
	dict.Set("Size", core.Int(size))

	io.WriteString(w.out, "trailer\n")
	if err := core.WriteObject(w.out, dict); err != nil {
		return nil, fmt.Errorf("writing trailer: %w", err)
	}
	fmt.Fprintf(w.out, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	if w.out.err != nil {
		return nil, w.out.err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	stats.Size = w.out.n

	w.logger.Debug("wrote document",
		"objects", stats.Objects,
		"compressed", stats.Compressed,
		"bytes", stats.Size)
	return stats, nil
}

func (w *writer) writeObject(obj *store.Object) (bool, error) {
	ref := obj.Reference()
	value := obj.Value()

	compressed := false
	if s, ok := value.(*core.Stream); ok && w.compress {
		c := core.Clone(s).(*core.Stream)
		done, err := c.Compress()
		if err != nil {
			return false, err
		}
		if done {
			value, compressed = c, true
		}
	}

	w.offsets[ref.Number] = w.out.n
	w.gens[ref.Number] = ref.Generation
	fmt.Fprintf(w.out, "%d %d obj\n", ref.Number, ref.Generation)
	if err := core.WriteObject(w.out, value); err != nil {
		return false, err
	}
	io.WriteString(w.out, "\nendobj\n")
	return compressed, w.out.err
}

// writeXRef writes a single-section table covering 0..max and returns its
// size. Free entries are chained through their offset fields, starting at
// entry 0 and ending back at it. Queued free references keep their
// generation, so a reader can reuse them. Free references above
// core.MaxObjectNumber are left out.
func (w *writer) writeXRef(free []core.Reference) int {
	freeGens := make(map[uint32]uint16)
	for _, ref := range free {
		if _, ok := w.offsets[ref.Number]; !ok && ref.Number > 0 && ref.Number <= core.MaxObjectNumber {
			freeGens[ref.Number] = ref.Generation
		}
	}

	var maxNum uint32
	for num := range w.offsets {
		maxNum = max(maxNum, num)
	}
	for num := range freeGens {
		maxNum = max(maxNum, num)
	}
	size := int(maxNum) + 1

	nextFree := make([]uint32, size)
	var last uint32
	for num := 1; num < size; num++ {
		if _, ok := w.offsets[uint32(num)]; !ok {
			nextFree[last] = uint32(num)
			last = uint32(num)
		}
	}

	fmt.Fprintf(w.out, "xref\n0 %d\n", size)
	for num := 0; num < size; num++ {
		n := uint32(num)
		if off, ok := w.offsets[n]; ok {
			fmt.Fprintf(w.out, "%010d %05d n \n", off, w.gens[n])
			continue
		}
		gen := freeGens[n]
		if num == 0 {
			gen = 65535
		}
		fmt.Fprintf(w.out, "%010d %05d f \n", nextFree[n], gen)
	}
	return size
}

// countingWriter tracks the offset of everything written and keeps the first
// error so callers can check once.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
