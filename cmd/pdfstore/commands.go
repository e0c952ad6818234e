package main

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/tsawler/pdfstore/core"
	"github.com/tsawler/pdfstore/reader"
	"github.com/tsawler/pdfstore/resolver"
	"github.com/tsawler/pdfstore/snapshot"
	"github.com/tsawler/pdfstore/store"
	"github.com/tsawler/pdfstore/writer"
)

func (a *app) open(path string) (*reader.Document, error) {
	return reader.Open(path, a.cfg.ReaderOptions(a.logger)...)
}

// write serializes s to path, replacing the file only once the output is
// complete.
func (a *app) write(path string, s *store.Store, trailer *store.Object) (*writer.Stats, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	stats, err := writer.Write(f, s, trailer, a.cfg.WriterOptions(a.logger)...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	return stats, os.Rename(tmp, path)
}

func (a *app) stat(args []string) error {
	doc, err := a.open(args[0])
	if err != nil {
		return err
	}
	s := doc.Objects

	rc, err := s.BuildReferenceCounts()
	if err != nil {
		return err
	}
	// Collect a copy so the figures do not depend on the file being rewritten.
	c, err := s.Clone()
	if err != nil {
		return err
	}
	gc, err := c.CollectGarbage(doc.Trailer)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "version:       %s\n", doc.Version)
	fmt.Fprintf(a.stdout, "objects:       %d\n", s.ObjectCount())
	fmt.Fprintf(a.stdout, "reachable:     %d\n", gc.Kept)
	fmt.Fprintf(a.stdout, "unreachable:   %d\n", len(gc.Removed))
	fmt.Fprintf(a.stdout, "unreferenced:  %d\n", len(rc.Unreferenced()))
	fmt.Fprintf(a.stdout, "dangling refs: %d\n", len(rc.Dangling()))
	fmt.Fprintf(a.stdout, "warnings:      %d\n", len(doc.Warnings))
	if title, ok := a.title(doc); ok {
		fmt.Fprintf(a.stdout, "title:         %s\n", title)
	}

	counts := make(map[string]int)
	for obj := range s.All() {
		counts[kind(obj)]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	slices.SortFunc(kinds, func(x, y string) int {
		return cmp.Or(cmp.Compare(counts[y], counts[x]), cmp.Compare(x, y))
	})
	for _, k := range kinds {
		fmt.Fprintf(a.stdout, "  %-12s %d\n", k, counts[k])
	}
	return nil
}

// title returns the document title from the info dictionary.
func (a *app) title(doc *reader.Document) (string, bool) {
	trailer, _ := doc.Trailer.Dict()
	r := resolver.NewResolver(doc.Objects, resolver.WithMaxDepth(a.cfg.MaxDepth))
	info, ok, err := r.Lookup(trailer, "Info")
	if err != nil || !ok {
		return "", false
	}
	dict, ok := info.(core.Dict)
	if !ok {
		return "", false
	}
	title, ok, err := r.Lookup(dict, "Title")
	if err != nil || !ok {
		return "", false
	}
	s, ok := title.(core.String)
	if !ok {
		return "", false
	}
	return s.Text(), true
}

// kind names an object by its /Type, or by its value type.
func kind(obj *store.Object) string {
	if d, ok := obj.Dict(); ok {
		if typ, ok := d.GetName("Type"); ok {
			return "/" + string(typ)
		}
	}
	return obj.Value().Type().String()
}

func (a *app) show(args []string) error {
	num, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("object number %q: %w", args[1], err)
	}
	var gen uint64
	if len(args) > 2 {
		if gen, err = strconv.ParseUint(args[2], 10, 16); err != nil {
			return fmt.Errorf("generation %q: %w", args[2], err)
		}
	}

	doc, err := a.open(args[0])
	if err != nil {
		return err
	}
	ref := core.Ref(uint32(num), uint16(gen))
	if doc.Objects.GetObject(ref) == nil {
		return fmt.Errorf("object %v not found", ref)
	}

	r := resolver.NewResolver(doc.Objects, resolver.WithMaxDepth(a.cfg.MaxDepth))
	value, err := r.ResolveReference(ref)
	if err != nil {
		return err
	}
	if err := core.WriteObject(a.stdout, value); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *app) gc(args []string) error {
	doc, err := a.open(args[0])
	if err != nil {
		return err
	}
	res, err := doc.Objects.CollectGarbage(doc.Trailer)
	if err != nil {
		return err
	}
	stats, err := a.write(args[1], doc.Objects, doc.Trailer)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed %d of %d objects, wrote %d bytes\n",
		len(res.Removed), len(res.Removed)+res.Kept, stats.Size)
	return nil
}

func (a *app) compact(args []string) error {
	doc, err := a.open(args[0])
	if err != nil {
		return err
	}
	res, err := doc.Objects.RenumberObjects(doc.Trailer, a.cfg.RenumberOptions()...)
	if err != nil {
		return err
	}
	stats, err := a.write(args[1], doc.Objects, doc.Trailer)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed %d objects, renumbered %d, nulled %d dangling references, wrote %d bytes\n",
		len(res.Removed), len(res.Mapping), res.Nulled, stats.Size)
	return nil
}

func (a *app) snapshot(args []string) error {
	doc, err := a.open(args[0])
	if err != nil {
		return err
	}
	if err := snapshot.Save(args[1], doc.Objects, doc.Trailer); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "saved %d objects\n", doc.Objects.ObjectCount())
	return nil
}

func (a *app) restore(args []string) error {
	s, trailer, err := snapshot.Load(args[0], a.cfg.StoreOptions(a.logger)...)
	if err != nil {
		return err
	}
	if trailer == nil {
		return fmt.Errorf("%s: snapshot has no trailer", args[0])
	}
	stats, err := a.write(args[1], s, trailer)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d objects, %d bytes\n", stats.Objects, stats.Size)
	return nil
}
