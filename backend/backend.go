// Package backend wires internal/objfile's event-driven writer behind
// the same fixed entry-point surface original_source/outelf.c exposes
// through its "struct ofmt of_elf" vtable literal: a display name, a
// short name for command-line selection, and the Init/Out/DefLabel/
// SectionNames/SegBase/Directive/Filename/Cleanup entry points a front
// end drives in sequence.
package backend

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/sdefresne/nasm/internal/objfile"
	"github.com/sdefresne/nasm/internal/segalloc"
)

// DisplayName and ShortName match of_elf's first two fields verbatim.
const (
	DisplayName = "ELF32 (i386) object files (e.g. Linux)"
	ShortName   = "elf"
)

// Backend is the output-format vtable a front end drives. It owns no
// state of its own beyond the objfile.Writer created by Init; calling
// any other method before Init, or calling Init twice, is a front-end
// bug.
type Backend struct {
	diag objfile.Diag
	w    *objfile.Writer
}

// New returns a Backend ready for Init. diag receives every
// diagnostic the writer produces.
func New(diag objfile.Diag) *Backend {
	return &Backend{diag: diag}
}

// Init implements of_elf's elf_init: it creates the underlying
// object-file writer, seeded with sourceName's basename for the FILE
// symbol and .strtab.
func (b *Backend) Init(sourceName string, opts objfile.Options) {
	b.w = objfile.New(b.diag, segalloc.New(), filepath.Base(sourceName), opts)
}

// SectionNames implements elf_section_names.
func (b *Backend) SectionNames(name string, pass int, bits *int) int {
	return b.w.SectionNames(name, pass, bits)
}

// DefLabel implements elf_deflabel.
func (b *Backend) DefLabel(name string, segment int, offset uint32, kind int) {
	b.w.DefLabel(name, segment, offset, kind)
}

// Out implements elf_out.
func (b *Backend) Out(segto int, data []byte, typ objfile.OutType, segment, wrt int) {
	b.w.Out(segto, data, typ, segment, wrt)
}

// AllocSegment hands out a fresh segment ID from the writer's own
// allocator, for front-end concepts (externs, absolute constants)
// that need a segment number without a backing section.
func (b *Backend) AllocSegment() int {
	return b.w.AllocSegment()
}

// AllocSegmentNamed hands out the segment ID previously allocated for
// name, or a fresh one on first use, so a front end can declare the
// same extern more than once without minting a duplicate segment ID.
func (b *Backend) AllocSegmentNamed(name string) int {
	return b.w.AllocSegmentNamed(name)
}

// SegBase implements elf_segbase: ELF has no segment bases distinct
// from the segment itself, so this is the identity function.
func (b *Backend) SegBase(segment int) int {
	return segment
}

// Directive implements elf_directive: this backend recognizes no
// format-specific directives.
func (b *Backend) Directive(directive, value string, pass int) int {
	return 0
}

// Filename implements elf_filename: it swaps inName's extension for
// ".o", matching standard_extension's behavior of only replacing a
// trailing extension when one is present and leaving a bare stem
// alone otherwise.
func Filename(inName string) string {
	base := inName
	if i := strings.LastIndexByte(inName, '.'); i > strings.LastIndexByte(inName, '/') && i >= 0 {
		base = inName[:i]
	}
	return base + ".o"
}

// Cleanup implements elf_cleanup: it serializes the complete object
// file to out.
func (b *Backend) Cleanup(out io.Writer) error {
	return b.w.Cleanup(out)
}

// ReservedSections lists the section names a front end may not
// declare directly (spec.md §4.3); exported so a driver can surface a
// friendlier diagnostic before ever calling SectionNames.
func ReservedSections() []string {
	return []string{".comment", ".shstrtab", ".symtab", ".strtab"}
}

// Constants re-exported for convenience so callers don't need to
// import internal/objfile just to spell NoSeg or the binding kinds
// DefLabel expects.
const (
	NoSeg = objfile.NoSeg

	BindLocal  = objfile.BindLocal
	BindGlobal = objfile.BindGlobal
	BindCommon = objfile.BindCommon
)
