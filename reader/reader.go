package reader

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/edsrzf/mmap-go"
	"github.com/juju/errgo"

	"github.com/tsawler/pdfstore/core"
	"github.com/tsawler/pdfstore/store"
)

var (
	// ErrNotPDF is returned when the data has no %PDF- header.
	ErrNotPDF = errors.New("reader: not a PDF file")

	// ErrNoTrailer is returned when neither a trailer dictionary, a
	// cross-reference stream nor a catalog can be found.
	ErrNoTrailer = errors.New("reader: no trailer found")

	// ErrEncrypted is returned for encrypted documents, which are not
	// supported.
	ErrEncrypted = errors.New("reader: encrypted documents are not supported")
)

// Version represents a PDF version
type Version struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Document is a loaded PDF: its objects in a store and its trailer.
type Document struct {
	Version Version

	// Objects holds every object defined in the file. Cross-reference
	// streams and object streams are unpacked and not kept.
	Objects *store.Store

	// Trailer is the trailer dictionary. It is not an entry of Objects; its
	// zero reference marks it as free standing.
	Trailer *store.Object

	// Warnings lists the damage that was skipped while loading.
	Warnings []Warning
}

// Root returns the reference of the document catalog.
func (d *Document) Root() (core.Reference, bool) {
	dict, _ := d.Trailer.Dict()
	return dict.GetReference("Root")
}

// Warning describes a recoverable problem found while loading.
type Warning struct {
	Offset int64
	Ref    core.Reference // zero when the problem is not tied to an object
	Err    error
}

func (w Warning) String() string {
	if w.Ref.IsZero() {
		return fmt.Sprintf("offset %d: %v", w.Offset, w.Err)
	}
	return fmt.Sprintf("offset %d: object %v: %v", w.Offset, w.Ref, w.Err)
}

// Option configures loading
type Option func(*loader)

// WithLogger sets the logger for load summaries and warnings
// (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithStoreOptions passes options to the store the document is loaded into.
func WithStoreOptions(opts ...store.Option) Option {
	return func(l *loader) {
		l.storeOpts = append(l.storeOpts, opts...)
	}
}

// WithScanStreams makes the loader ignore /Length and take stream data up to
// the endstream keyword. Useful for files whose lengths are known to be bad.
func WithScanStreams() Option {
	return func(l *loader) {
		l.scanStreams = true
	}
}

// Open memory-maps the named file and loads it.
func Open(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errgo.Notef(err, "cannot open %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errgo.Notef(err, "cannot stat %s", path)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNotPDF)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errgo.Notef(err, "cannot map %s", path)
	}
	defer m.Unmap()

	// Parsed values copy what they need, so the mapping can go away.
	return Load(m, opts...)
}

var (
	pdfHeader   = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)
	objHeader   = regexp.MustCompile(`(\d{1,10})[\x00\t\n\f\r ]+(\d{1,5})[\x00\t\n\f\r ]+obj`)
	trailerWord = []byte("trailer")
)

// headerWindow is how far into the file the %PDF- header may start.
const headerWindow = 1024

// Load parses a complete PDF held in memory.
//
// Rather than trusting the cross-reference table, the loader scans the body
// for object definitions, so files with broken or missing tables load too.
// When an object number is defined more than once, the definition that comes
// last in the file wins, as it would after an incremental update. Objects
// packed in object streams are unpacked; they fill in numbers that no
// uncompressed definition provides. The last trailer dictionary or
// cross-reference stream dictionary becomes the trailer. The free entries of
// the classic cross-reference tables seed the store's free list.
func Load(data []byte, opts ...Option) (*Document, error) {
	l := &loader{data: data, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l.load()
}

type loader struct {
	data        []byte
	logger      *slog.Logger
	storeOpts   []store.Option
	scanStreams bool

	defs       map[uint32]definition
	packed     map[uint32]definition
	trailer    core.Dict
	trailerPos int64
	warnings   []Warning
}

type definition struct {
	obj    core.IndirectObject
	offset int64
}

func (l *loader) load() (*Document, error) {
	version, err := l.header()
	if err != nil {
		return nil, err
	}

	l.defs = make(map[uint32]definition)
	l.packed = make(map[uint32]definition)
	l.trailerPos = -1
	l.scan()
	l.unpack()

	if l.trailer == nil {
		if err := l.synthesizeTrailer(); err != nil {
			return nil, err
		}
	}
	if l.trailer.Has("Encrypt") {
		return nil, ErrEncrypted
	}

	doc := &Document{
		Version:  version,
		Objects:  store.New(l.storeOpts...),
		Trailer:  store.NewObject(core.Reference{}, l.trailer),
	}
	for _, num := range slices.Sorted(maps.Keys(l.defs)) {
		def := l.defs[num]
		doc.Objects.PushBack(store.NewObject(def.obj.Ref, def.obj.Object))
	}
	l.seedFreeList(doc.Objects)
	doc.Warnings = l.warnings

	l.logger.Debug("loaded document",
		"version", version.String(),
		"objects", doc.Objects.Len(),
		"free", len(doc.Objects.FreeObjects()),
		"warnings", len(l.warnings))
	for _, w := range l.warnings {
		l.logger.Warn("damaged input", "detail", w.String())
	}
	return doc, nil
}

func (l *loader) header() (Version, error) {
	window := l.data[:min(len(l.data), headerWindow)]
	m := pdfHeader.FindSubmatch(window)
	if m == nil {
		return Version{}, ErrNotPDF
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return Version{Major: major, Minor: minor}, nil
}

// scan walks the body for "N G obj" headers and trailer keywords in file
// order. Matches inside an object that was already parsed are skipped.
func (l *loader) scan() {
	objs := objHeader.FindAllSubmatchIndex(l.data, -1)
	trailers := keywordIndexes(l.data, trailerWord)

	var end int64
	ti := 0
	for _, m := range objs {
		start := int64(m[0])
		for ti < len(trailers) && trailers[ti] < start {
			if trailers[ti] >= end {
				end = l.parseTrailer(trailers[ti])
			}
			ti++
		}
		if start < end || !l.boundary(m[0], m[1]) {
			continue
		}
		end = l.parseObject(start)
	}
	for ; ti < len(trailers); ti++ {
		if trailers[ti] >= end {
			end = l.parseTrailer(trailers[ti])
		}
	}
}

// boundary reports whether data[start:end] stands alone as a token sequence.
func (l *loader) boundary(start, end int) bool {
	if start > 0 && isRegular(l.data[start-1]) {
		return false
	}
	return end == len(l.data) || !isRegular(l.data[end])
}

func (l *loader) newParser(offset int64) *core.Parser {
	p := core.NewParserAt(bytes.NewReader(l.data[offset:]), offset)
	p.SetScanStreams(l.scanStreams)
	return p
}

// parseObject parses the definition at offset and returns where it ends.
// On failure the scan resumes right after the header.
func (l *loader) parseObject(offset int64) int64 {
	p := l.newParser(offset)
	obj, err := p.ParseIndirectObject()
	if err != nil && !l.scanStreams {
		// Wrong stream lengths are the most common damage; retry by scanning.
		p = l.newParser(offset)
		p.SetScanStreams(true)
		if obj, err = p.ParseIndirectObject(); err == nil {
			l.warn(offset, obj.Ref, errors.New("bad stream length, data read up to endstream"))
		}
	}
	if err != nil {
		l.warn(offset, core.Reference{}, err)
		return offset + 1
	}

	if s, ok := obj.Object.(*core.Stream); ok {
		switch typ, _ := s.Dict.GetName("Type"); typ {
		case "XRef":
			l.setTrailer(s.Dict, offset)
			return p.Offset()
		case "ObjStm":
			l.packed[obj.Ref.Number] = definition{obj: *obj, offset: offset}
			return p.Offset()
		}
	}

	if prev, ok := l.defs[obj.Ref.Number]; ok && prev.obj.Ref != obj.Ref {
		l.warn(offset, obj.Ref, fmt.Errorf("replaces generation %d", prev.obj.Ref.Generation))
	}
	l.defs[obj.Ref.Number] = definition{obj: *obj, offset: offset}
	return p.Offset()
}

func (l *loader) parseTrailer(offset int64) int64 {
	p := l.newParser(offset)
	dict, err := p.ParseTrailer()
	if err != nil {
		l.warn(offset, core.Reference{}, err)
		return offset + 1
	}
	l.setTrailer(dict, offset)
	return p.Offset()
}

// setTrailer keeps the entries of a trailer or cross-reference stream
// dictionary that describe the document rather than the file layout.
func (l *loader) setTrailer(dict core.Dict, offset int64) {
	if offset < l.trailerPos {
		return
	}
	trailer := make(core.Dict)
	for _, key := range []string{"Root", "Info", "ID", "Encrypt"} {
		if v := dict.Get(key); v != nil {
			trailer.Set(key, v)
		}
	}
	if l.trailer != nil && !trailer.Has("Root") {
		// An update section without /Root inherits the previous one.
		if root := l.trailer.Get("Root"); root != nil {
			trailer.Set("Root", root)
		}
	}
	l.trailer = trailer
	l.trailerPos = offset
}

// unpack expands object streams. Packed objects only fill numbers that have
// no uncompressed definition; an object stream nested in another is ignored.
func (l *loader) unpack() {
	for _, num := range slices.Sorted(maps.Keys(l.packed)) {
		def := l.packed[num]
		objStm, err := core.NewObjectStream(def.obj.Object.(*core.Stream))
		if err != nil {
			l.warn(def.offset, def.obj.Ref, err)
			continue
		}
		objs, errs, err := objStm.Objects()
		if err != nil {
			l.warn(def.offset, def.obj.Ref, err)
			continue
		}
		for _, e := range errs {
			l.warn(def.offset, def.obj.Ref, e)
		}
		for _, obj := range objs {
			if _, ok := l.defs[obj.Ref.Number]; ok {
				continue
			}
			if _, ok := l.packed[obj.Ref.Number]; ok {
				continue
			}
			l.defs[obj.Ref.Number] = definition{obj: obj, offset: def.offset}
		}
	}
}

// synthesizeTrailer builds a trailer pointing at the last catalog found.
func (l *loader) synthesizeTrailer() error {
	var (
		root  core.Reference
		found bool
		pos   int64 = -1
	)
	for _, def := range l.defs {
		d, ok := def.obj.Object.(core.Dict)
		if !ok {
			continue
		}
		if typ, _ := d.GetName("Type"); typ == "Catalog" && def.offset > pos {
			root, found, pos = def.obj.Ref, true, def.offset
		}
	}
	if !found {
		return ErrNoTrailer
	}
	l.warn(pos, root, errors.New("no trailer; using this catalog as root"))
	l.trailer = core.Dict{"Root": root}
	return nil
}

// seedFreeList queues the free entries of the classic cross-reference
// tables, so new objects reuse numbers the file has given up. For each number
// the newest section decides; numbers that have a definition stay off the
// list. Files that only have cross-reference streams start with an empty list.
func (l *loader) seedFreeList(s *store.Store) {
	tables, err := core.ParseXRefChain(l.data)
	if err != nil && !(errors.Is(err, core.ErrNoXRefTable) && len(tables) == 0) {
		l.warn(0, core.Reference{}, fmt.Errorf("cross-reference table: %w", err))
	}

	decided := make(map[uint32]bool)
	var free []core.Reference
	for _, table := range tables {
		for _, ref := range table.Free() {
			if _, defined := l.defs[ref.Number]; !defined && !decided[ref.Number] {
				free = append(free, ref)
			}
		}
		for _, e := range table.Entries {
			decided[e.Number] = true
		}
	}

	slices.SortFunc(free, core.Reference.Compare)
	for _, ref := range free {
		s.AddFreeObject(ref)
	}
}

func (l *loader) warn(offset int64, ref core.Reference, err error) {
	l.warnings = append(l.warnings, Warning{Offset: offset, Ref: ref, Err: err})
}

// keywordIndexes returns the offsets of kw where it stands as a keyword.
func keywordIndexes(data, kw []byte) []int64 {
	var idx []int64
	for i := 0; ; {
		j := bytes.Index(data[i:], kw)
		if j < 0 {
			return idx
		}
		start, end := i+j, i+j+len(kw)
		if (start == 0 || !isRegular(data[start-1])) && (end == len(data) || !isRegular(data[end])) {
			idx = append(idx, int64(start))
		}
		i = end
	}
}

func isRegular(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ',
		'(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}
