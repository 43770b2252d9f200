// Package elf32 defines the on-disk ELF32 little-endian record layouts
// this writer emits (file header, section header, symbol table entry,
// relocation entry) and the handful of encoding helpers that turn the
// in-memory values objfile computes into bytes. It knows the exact
// byte contract from spec.md §4.6 and original_source/outelf.c; it
// does not know what a "section" or "symbol" means to an assembler —
// that modeling lives in internal/objfile.
package elf32

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// Machine/file-type/version constants, System V i386 ABI.
const (
	ETRel     = 1 // ET_REL
	EM386     = 3 // EM_386
	EVCurrent = 1 // EV_CURRENT

	EhdrSize = 52
	ShdrSize = 40
	SymSize  = 16
	RelSize  = 8

	SegAlign = 16 // inter-section file alignment
)

// Section types (spec.md §3).
const (
	SHTNull     = 0
	SHTProgbits = 1
	SHTSymtab   = 2
	SHTStrtab   = 3
	SHTRel      = 9
	SHTNobits   = 8
)

// Section flags.
const (
	SHFWrite     = 0x1
	SHFAlloc     = 0x2
	SHFExecinstr = 0x4
)

// Special section indices.
const (
	SHNUndef  = 0
	SHNAbs    = 0xFFF1
	SHNCommon = 0xFFF2
)

// Symbol type/binding bits packed into Sym.Info.
const (
	SttFile    = 4
	SttSection = 3
	SymGlobal  = 0x10 // binding STB_GLOBAL shifted into the high nibble position used by outelf.c
)

// Relocation types, packed into the low byte of Rel.Info.
const (
	R386_32   = 1
	R386_PC32 = 2
)

// GlobalTempBase is the sentinel added to a global's ordinal index to
// provisionally encode "external global reference" in a Reloc's
// Symbol field before the serializer rewrites it to the final
// symbol-table index (spec.md §4.4, §4.6(e)).
const GlobalTempBase = 6

var byteOrder = binary.LittleEndian
var strucOpts = &struc.Options{Order: byteOrder}

// Ehdr is the 52-byte ELF32 file header.
type Ehdr struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// Magic is the fixed 16-byte e_ident prefix spec.md §4.6(c) requires.
var Magic = [16]byte{0x7F, 0x45, 0x4C, 0x46, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// NewEhdr builds the header for a file with shnum sections and the
// .shstrtab section at index shstrndx.
func NewEhdr(shnum, shstrndx uint16) Ehdr {
	return Ehdr{
		Ident:     Magic,
		Type:      ETRel,
		Machine:   EM386,
		Version:   EVCurrent,
		Entry:     0,
		Phoff:     0,
		Shoff:     0x40,
		Flags:     0,
		Ehsize:    0x34,
		Phentsize: 0,
		Phnum:     0,
		Shentsize: ShdrSize,
		Shnum:     shnum,
		Shstrndx:  shstrndx,
	}
}

// Encode packs h as 52 bytes followed by 12 zero padding bytes, the
// full 0x40-byte block that precedes the section header table.
func (h Ehdr) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &h, strucOpts); err != nil {
		return nil, errors.Wrap(err, "encode ELF header")
	}
	if buf.Len() != EhdrSize {
		return nil, errors.Errorf("encoded ELF header is %d bytes, want %d", buf.Len(), EhdrSize)
	}
	buf.Write(make([]byte, 0x40-EhdrSize))
	return buf.Bytes(), nil
}

// Shdr is a 40-byte ELF32 section header entry.
type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

// Encode packs sh as exactly ShdrSize bytes.
func (sh Shdr) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &sh, strucOpts); err != nil {
		return nil, errors.Wrap(err, "encode section header")
	}
	return buf.Bytes(), nil
}

// Sym is a 16-byte ELF32 symbol table entry.
type Sym struct {
	Name  uint32
	Value uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

// Encode packs s as exactly SymSize bytes.
func (s Sym) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &s, strucOpts); err != nil {
		return nil, errors.Wrap(err, "encode symbol table entry")
	}
	return buf.Bytes(), nil
}

// Rel is an 8-byte ELF32 REL relocation entry (no addend; the addend
// lives in the target bytes themselves).
type Rel struct {
	Offset uint32
	Info   uint32
}

// NewRel builds a Rel from a resolved symbol index and relocation
// kind.
func NewRel(offset, symIndex uint32, relative bool) Rel {
	typ := uint32(R386_32)
	if relative {
		typ = R386_PC32
	}
	return Rel{Offset: offset, Info: (symIndex << 8) | typ}
}

// Encode packs r as exactly RelSize bytes.
func (r Rel) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &r, strucOpts); err != nil {
		return nil, errors.Wrap(err, "encode relocation entry")
	}
	return buf.Bytes(), nil
}

// AlignUp rounds n up to the next multiple of SegAlign.
func AlignUp(n int) int {
	return (n + (SegAlign - 1)) &^ (SegAlign - 1)
}

// PutU32LE writes v into p[0:4] little-endian, truncated the same way
// the reference's WRITELONG-into-a-4-byte-buffer does for n<4 ADDRESS
// writes (spec.md §9 open question: the truncation is preserved, not
// fixed).
func PutU32LE(p []byte, v uint32) {
	byteOrder.PutUint32(p, v)
}
