package objfile

import (
	"strconv"
	"strings"

	"github.com/sdefresne/nasm/internal/container"
	"github.com/sdefresne/nasm/internal/elf32"
)

// reservedNames are the four ELF section names spec.md §4.3 forbids
// as assembler-declared section names (they are still legal as
// labels — spec.md §9).
var reservedNames = map[string]bool{
	".comment":  true,
	".shstrtab": true,
	".symtab":   true,
	".strtab":   true,
}

// sectionAttrs is the parsed result of a section directive's
// attribute string (spec.md §4.3).
type sectionAttrs struct {
	align     uint32
	haveAlign bool
	typ       uint32
	haveType  bool
	flagsAnd  uint32
	flagsOr   uint32
}

func parseSectionAttrs(spec string, diag Diag) sectionAttrs {
	var a sectionAttrs
	for _, tok := range strings.Fields(spec) {
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(lower, "align="):
			n, err := strconv.Atoi(tok[len("align="):])
			if err != nil || n <= 0 {
				n = 1
			}
			if n&(n-1) != 0 {
				diag.NonFatal("section alignment %d is not a power of two", n)
				n = 1
			}
			a.align = uint32(n)
			a.haveAlign = true
		case lower == "alloc":
			a.flagsAnd |= elf32.SHFAlloc
			a.flagsOr |= elf32.SHFAlloc
		case lower == "noalloc":
			a.flagsAnd |= elf32.SHFAlloc
			a.flagsOr &^= elf32.SHFAlloc
		case lower == "exec":
			a.flagsAnd |= elf32.SHFExecinstr
			a.flagsOr |= elf32.SHFExecinstr
		case lower == "noexec":
			a.flagsAnd |= elf32.SHFExecinstr
			a.flagsOr &^= elf32.SHFExecinstr
		case lower == "write":
			a.flagsAnd |= elf32.SHFWrite
			a.flagsOr |= elf32.SHFWrite
		case lower == "nowrite":
			a.flagsAnd |= elf32.SHFWrite
			a.flagsOr &^= elf32.SHFWrite
		case lower == "progbits":
			a.typ = elf32.SHTProgbits
			a.haveType = true
		case lower == "nobits":
			a.typ = elf32.SHTNobits
			a.haveType = true
		}
	}
	return a
}

func (w *Writer) findSection(name string) *section {
	for _, s := range w.sections {
		if s.name == name {
			return s
		}
	}
	return nil
}

// makeSection creates and registers a new section (elf_make_section).
// explicit records whether this call came from a front end naming the
// section itself, as opposed to New's eager default creation of .text.
func (w *Writer) makeSection(name string, typ uint32, flags, align uint32, explicit bool) *section {
	var data *container.ByteStream
	if typ != elf32.SHTNobits {
		data = container.NewByteStream()
	}
	var segID int
	if name == ".text" && !w.textMade {
		segID = w.textSegID
	} else {
		segID = w.alloc.Alloc()
	}
	nameOff := uint32(w.shstrtab.Add("", name))
	s := &section{
		name:     name,
		nameOff:  nameOff,
		segID:    segID,
		typ:      typ,
		flags:    flags,
		align:    align,
		data:     data,
		explicit: explicit,
	}
	w.sections = append(w.sections, s)
	w.bySegID[segID] = s
	if name == ".text" {
		w.textMade = true
	}
	return s
}

// applySectionAttrs overrides s's type/alignment/flags with whatever
// attrs carries, the "attribute tokens override defaults on the
// creation call only" rule of spec.md §4.3.
func applySectionAttrs(s *section, attrs sectionAttrs) {
	if attrs.haveType {
		s.typ = attrs.typ
		if s.typ == elf32.SHTNobits {
			s.data = nil
		} else if s.data == nil {
			s.data = container.NewByteStream()
		}
	}
	if attrs.haveAlign {
		s.align = attrs.align
	}
	s.flags = (s.flags &^ attrs.flagsAnd) | attrs.flagsOr
}

// SectionNames implements spec.md §4.3's section_names: it creates a
// section on first reference (applying default attributes for
// .text/.data/.bss/anything-else, then any attribute tokens given),
// or — on a later reference — warns and ignores attributes during
// pass 1. .text is special-cased: New eagerly creates it before any
// front-end call, so its first explicit SectionNames(".text ...")
// call is still treated as a creation call for attribute-override
// purposes, not a redeclaration. name == "" returns the pre-allocated
// .text segment and sets *bits to 32.
func (w *Writer) SectionNames(name string, pass int, bits *int) int {
	if bits != nil {
		*bits = 32
	}
	if name == "" {
		return w.textSegID
	}

	fields := strings.SplitN(name, " ", 2)
	sectName := fields[0]
	var attrSpec string
	if len(fields) == 2 {
		attrSpec = fields[1]
	}

	if reservedNames[sectName] {
		w.diag.NonFatal("attempt to redefine reserved section name `%s'", sectName)
		return NoSeg
	}

	attrs := parseSectionAttrs(attrSpec, w.diag)

	s := w.findSection(sectName)
	switch {
	case s == nil:
		switch sectName {
		case ".text":
			s = w.makeSection(sectName, elf32.SHTProgbits, elf32.SHFAlloc|elf32.SHFExecinstr, 16, true)
		case ".data":
			s = w.makeSection(sectName, elf32.SHTProgbits, elf32.SHFAlloc|elf32.SHFWrite, 4, true)
		case ".bss":
			s = w.makeSection(sectName, elf32.SHTNobits, elf32.SHFAlloc|elf32.SHFWrite, 4, true)
		default:
			s = w.makeSection(sectName, elf32.SHTProgbits, elf32.SHFAlloc, 1, true)
		}
		applySectionAttrs(s, attrs)
	case !s.explicit:
		applySectionAttrs(s, attrs)
		s.explicit = true
	case pass == 1:
		if attrs.haveType || attrs.haveAlign || attrs.flagsAnd != 0 {
			w.diag.Warning("section attributes ignored on redeclaration of section `%s'", sectName)
		}
	}

	return s.segID
}
