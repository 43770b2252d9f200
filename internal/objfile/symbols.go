package objfile

import "github.com/sdefresne/nasm/internal/elf32"

// Binding kinds for DefLabel's kind parameter (spec.md §4.5).
const (
	BindLocal  = 0
	BindGlobal = 1
	BindCommon = 2
)

// DefLabel implements spec.md §4.5's deflabel. Names beginning with
// ".." are front-end-reserved pseudo-labels and are silently ignored.
func (w *Writer) DefLabel(name string, segment int, offset uint32, kind int) {
	if len(name) >= 2 && name[0] == '.' && name[1] == '.' {
		return
	}

	strpos := uint32(w.strtabT.Add("", name))

	var shndx uint32
	switch {
	case segment == NoSeg:
		shndx = elf32.SHNAbs
	default:
		shndx = elf32.SHNUndef
		if s, ok := w.bySegID[segment]; ok {
			shndx = uint32(w.sectionIndex(s) + 1)
		}
	}

	sym := &symbol{strpos: strpos, shndx: shndx}

	if kind == BindCommon {
		sym.shndx = elf32.SHNCommon
		sym.value = offset
	} else if shndx != elf32.SHNUndef {
		sym.value = offset
	}

	if kind == BindGlobal || kind == BindCommon {
		sym.global = true
		if sym.shndx == elf32.SHNUndef || sym.shndx == elf32.SHNCommon {
			w.globalIdx.Write(segment, w.nGlobals)
		}
		w.nGlobals++
	} else {
		w.nLocals++
	}

	w.symbols = append(w.symbols, sym)
}

// sectionIndex returns s's 0-based position in the section registry.
func (w *Writer) sectionIndex(s *section) int {
	for i, c := range w.sections {
		if c == s {
			return i
		}
	}
	return -1
}
