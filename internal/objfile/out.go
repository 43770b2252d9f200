package objfile

import (
	"encoding/binary"

	"github.com/sdefresne/nasm/internal/elf32"
)

// OutOp is the operation kind of an Out event (spec.md §4.4).
type OutOp uint32

const (
	OpReserve OutOp = iota
	OpRawData
	OpAddress
	OpRel2Adr
	OpRel4Adr
)

// OutType packs an OutOp and a byte size the way spec.md §4.4 and
// §6 describe the front end doing ("type (op + size in bytes,
// packed)"); PackOutType/Op/Size are the packing/unpacking pair.
type OutType uint32

const outSizeBits = 8
const outSizeMask OutType = (1 << outSizeBits) - 1

// PackOutType combines an operation and a byte size into the single
// value the backend vtable's Out slot receives.
func PackOutType(op OutOp, size int) OutType {
	return OutType(op)<<outSizeBits | OutType(size)&outSizeMask
}

// Op extracts the operation kind.
func (t OutType) Op() OutOp { return OutOp(t >> outSizeBits) }

// Size extracts the byte size.
func (t OutType) Size() int { return int(t & outSizeMask) }

// Out implements spec.md §4.4's event handler. segto is the segment
// being written to (NoSeg means ABSOLUTE context); data holds the
// bytes to copy for RAWDATA or the little-endian source value for
// ADDRESS/REL4ADR (unused for RESERVE and REL2ADR);
// segment is the relocation target (NoSeg for self-contained data);
// wrt, if not NoSeg, is rejected (WRT is unsupported).
func (w *Writer) Out(segto int, data []byte, typ OutType, segment, wrt int) {
	if wrt != NoSeg {
		wrt = NoSeg
		w.diag.NonFatal("WRT not supported by ELF output format")
	}

	op := typ.Op()
	size := typ.Size()

	if segto == NoSeg {
		if op != OpReserve {
			w.diag.NonFatal("attempt to assemble code in [ABSOLUTE] space")
		}
		return
	}

	s := w.sectionFor(segto)

	if s.typ == elf32.SHTNobits && op != OpReserve {
		w.diag.Warning("attempt to initialise memory in BSS section `%s': ignored", s.name)
		switch op {
		case OpRel2Adr:
			size = 2
		case OpRel4Adr:
			size = 4
		}
		s.length += uint32(size)
		return
	}

	switch op {
	case OpReserve:
		w.reserve(s, size)
	case OpRawData:
		w.rawData(s, data, segment)
	case OpAddress:
		w.address(s, data, size, segment, wrt)
	case OpRel2Adr:
		w.diag.NonFatal("ELF format does not support 16-bit relocations")
	case OpRel4Adr:
		w.rel4adr(s, segto, data, size, segment, wrt)
	}
}

// sectionFor resolves segto to a section, directing the write to .text
// (which New always creates) if segto names no known section
// (spec.md §4.4).
func (w *Writer) sectionFor(segto int) *section {
	if s, ok := w.bySegID[segto]; ok {
		return s
	}
	return w.bySegID[w.textSegID]
}

func (w *Writer) writeBytes(s *section, p []byte) {
	s.data.Append(p)
	s.length += uint32(len(p))
}

func (w *Writer) reserve(s *section, n int) {
	if s.typ == elf32.SHTProgbits {
		w.diag.Warning("uninitialised space declared in non-BSS section `%s': zeroing", s.name)
		s.data.AppendZeros(n)
		s.length += uint32(n)
	} else {
		s.length += uint32(n)
	}
}

func (w *Writer) rawData(s *section, data []byte, segment int) {
	if segment != NoSeg {
		w.diag.Panic("RAWDATA with other than no-segment")
	}
	w.writeBytes(s, data)
}

func (w *Writer) address(s *section, data []byte, size int, segment, wrt int) {
	if segment != NoSeg {
		if segment%2 != 0 {
			w.diag.NonFatal("ELF format does not support segment base references")
		} else {
			w.addReloc(s, segment, false)
		}
		if size == 2 {
			w.diag.NonFatal("ELF format does not support 16-bit relocations")
		}
	}
	v := binary.LittleEndian.Uint32(pad4(data))
	buf := make([]byte, 4)
	elf32.PutU32LE(buf, v)
	w.writeBytes(s, buf[:size])
}

func (w *Writer) rel4adr(s *section, segto int, data []byte, size int, segment, wrt int) {
	if segment == segto {
		w.diag.Panic("intra-segment REL4ADR")
	}
	if segment != NoSeg && segment%2 != 0 {
		w.diag.NonFatal("ELF format does not support segment base references")
	} else {
		w.addReloc(s, segment, true)
	}
	v := binary.LittleEndian.Uint32(pad4(data)) - uint32(size)
	buf := make([]byte, 4)
	elf32.PutU32LE(buf, v)
	w.writeBytes(s, buf)
}

// pad4 returns a 4-byte slice, zero-extending data if it is shorter
// (spec.md §9's open question: ADDRESS of size 1 still reads a full
// 32-bit value from *data; the reference relies on the caller always
// handing over a 4-byte-aligned buffer, which this port preserves by
// treating a short buffer as zero-extended rather than panicking).
func pad4(data []byte) []byte {
	if len(data) >= 4 {
		return data[:4]
	}
	var buf [4]byte
	copy(buf[:], data)
	return buf[:]
}

// addReloc appends a relocation record against s at its current
// length, encoding the provisional symbol reference spec.md §4.4 and
// §4.6(e) describe: index 2 (the SHN_ABS-typed SECTION symbol built
// by serialize.go's buildSymtab) for a no-segment constant, the
// per-section SECTION symbol (3+sectionIndex) for an intra-object
// reference, or GlobalTempBase+ordinal for an external global,
// resolved to a final symbol-table index at serialization time.
func (w *Writer) addReloc(s *section, segment int, relative bool) {
	var rawSymbol uint32
	if segment == NoSeg {
		rawSymbol = 2
	} else if target, ok := w.bySegID[segment]; ok {
		rawSymbol = uint32(w.sectionIndex(target) + 3)
	} else {
		rawSymbol = elf32.GlobalTempBase + uint32(w.globalIdx.Read(segment))
	}
	s.relocs = append(s.relocs, reloc{
		address:   s.length,
		rawSymbol: rawSymbol,
		relative:  relative,
	})
}
