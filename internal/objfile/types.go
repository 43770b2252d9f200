// Package objfile is the in-memory object model and event-driven
// mutation protocol of spec.md §§2-5: the section registry, symbol
// registry, and serializer that together implement the ELF32 (i386)
// relocatable object writer. Front ends (a real assembler, or the
// scripted driver in cmd/o32demo) mutate a *Writer by calling
// SectionNames, DefLabel, and Out in any interleaving, then call
// Cleanup exactly once.
package objfile

import (
	"github.com/sdefresne/nasm/internal/container"
	"github.com/sdefresne/nasm/internal/elf32"
	"github.com/sdefresne/nasm/internal/strtab"
)

// NoSeg is the sentinel segment ID meaning "no segment" / ABSOLUTE
// context, matching NASM's NO_SEG.
const NoSeg = -1

// section is one entry in the section registry (spec.md §3). Fields
// are unexported: only Writer's methods mutate them, enforcing the
// invariants named in the spec (index never changes, NOBITS sections
// carry no payload, etc).
type section struct {
	name     string
	nameOff  uint32 // offset of name within the writer's shstrtab
	segID    int
	typ      uint32 // elf32.SHTProgbits or elf32.SHTNobits
	flags    uint32
	align    uint32
	data     *container.ByteStream // nil for NOBITS
	length   uint32                // logical length; equals data.Len() iff PROGBITS
	relocs   []reloc
	explicit bool // true once a front end has named this section itself, rather than it existing only as an implicit default (spec.md §4.3)
}

// reloc is one pending relocation against a section, recorded in
// insertion order (spec.md §3's "Reloc").
type reloc struct {
	address   uint32 // offset within the owning section at append time
	rawSymbol uint32 // provisional encoding, see addReloc
	relative  bool
}

// symbol is one entry in the symbol registry (spec.md §3's "Symbol").
type symbol struct {
	strpos  uint32
	shndx   uint32 // elf32.SHNUndef / elf32.SHNAbs / elf32.SHNCommon, or 1-based section index
	global  bool
	value   uint32 // address for defined symbols, size for COMMON
}

// Allocator hands out segment IDs; see internal/segalloc.
type Allocator interface {
	Alloc() int
	AllocFromName(name string) int
}

// Writer is the object model plus the mutation protocol: the
// Go re-architecture spec.md §9 calls for, replacing the reference's
// file-scope statics with fields of a value created by New and
// consumed by Cleanup.
type Writer struct {
	diag  Diag
	alloc Allocator

	sections   []*section
	bySegID    map[int]*section
	textSegID  int
	textMade   bool

	symbols     []*symbol
	globalIdx   *container.SparseInts // external segID -> ordinal among globals
	nGlobals    int
	nLocals     int

	shstrtab *strtab.Table
	strtabT  *strtab.Table

	sourceBasename string
	comment        string
}

// Options configures a new Writer beyond the mandatory diag/alloc/
// source name triple spec.md §4.2's filename-seeding rule needs.
type Options struct {
	// Comment, if non-empty, overrides the default
	// "The Netwide Assembler <version>" .comment payload.
	Comment string
}

const defaultComment = "The Netwide Assembler (Go port)"

// New creates a Writer (spec.md's "init"). sourceBasename is the
// assembler's input file's basename, seeded into .strtab and used as
// the FILE symbol's name.
func New(diag Diag, alloc Allocator, sourceBasename string, opts Options) *Writer {
	w := &Writer{
		diag:           diag,
		alloc:          alloc,
		bySegID:        make(map[int]*section),
		globalIdx:      container.NewSparseInts(),
		shstrtab:       strtab.NewShStrTab(),
		strtabT:        strtab.NewStrTab(sourceBasename),
		sourceBasename: sourceBasename,
		comment:        opts.Comment,
	}
	if w.comment == "" {
		w.comment = defaultComment
	}
	// .text is always the active default segment from the first
	// instruction a real assembler front end would process, so it
	// exists — with size 0 if nothing is ever written to it — even
	// for a source file that emits no code (spec.md §8 scenario 1).
	// It starts out implicit: the front end's first explicit
	// SectionNames(".text ...") call still gets to apply attribute
	// overrides, exactly as if that call had created the section.
	w.textSegID = alloc.Alloc()
	w.makeSection(".text", elf32.SHTProgbits, elf32.SHFAlloc|elf32.SHFExecinstr, 16, false)
	return w
}

// AllocSegment hands the front end a fresh segment ID from the same
// allocator sections are drawn from, for declaring externs and other
// front-end concepts that need a segment number without a backing
// section (spec.md's seg_alloc collaborator, §9).
func (w *Writer) AllocSegment() int {
	return w.alloc.Alloc()
}

// AllocSegmentNamed hands the front end the segment ID previously
// allocated for name, or a fresh one on first use, so repeated
// declarations of the same extern (e.g. two "extern foo" lines) share
// one segment ID instead of colliding as distinct symbols.
func (w *Writer) AllocSegmentNamed(name string) int {
	return w.alloc.AllocFromName(name)
}
