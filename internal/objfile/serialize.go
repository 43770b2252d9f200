package objfile

import (
	"io"

	"github.com/pkg/errors"

	"github.com/sdefresne/nasm/internal/elf32"
)

// Cleanup implements spec.md §4.6's "cleanup": it freezes the section
// and symbol registries, builds the symbol table, the relocation
// tables, and the string tables, and streams a complete ELF32 object
// file to out. It must be called exactly once, after every
// section_names/deflabel/out call the front end intends to make.
func (w *Writer) Cleanup(out io.Writer) error {
	nsects := len(w.sections)

	// (a) catalogue sections: every user section with at least one
	// pending relocation gets a ".rel"+name sibling section.
	hasRel := make([]bool, nsects)
	relNameOff := make([]uint32, nsects)
	for i, s := range w.sections {
		if len(s.relocs) > 0 {
			hasRel[i] = true
			relNameOff[i] = uint32(w.shstrtab.Add(".rel", s.name))
		}
	}
	commentOff := uint32(w.shstrtab.Add("", ".comment"))
	shstrtabOff := uint32(w.shstrtab.Add("", ".shstrtab"))
	symtabOff := uint32(w.shstrtab.Add("", ".symtab"))
	strtabOff := uint32(w.shstrtab.Add("", ".strtab"))

	// (b) the .comment payload: a leading NUL, the comment text, a
	// trailing NUL (outelf.c's commlen = 2+sprintf(comment+1, ...)).
	comment := make([]byte, 0, len(w.comment)+2)
	comment = append(comment, 0)
	comment = append(comment, w.comment...)
	comment = append(comment, 0)

	// (d) the symbol table: null, FILE, nsects+1 SECTION symbols
	// (the first carrying SHN_ABS), then every local DefLabel, then
	// every global. globalBase is the index of the first global entry
	// (the first non-local entry), required in .symtab's sh_info.
	globalBase := uint32(nsects+3) + uint32(w.nLocals)
	symtabBuf, err := w.buildSymtab(nsects)
	if err != nil {
		return errors.Wrap(err, "build symbol table")
	}

	// (e) one relocation table per section that needs one, rewriting
	// GlobalTempBase-encoded provisional symbols to their final
	// symbol-table index.
	relBufs := make([][]byte, nsects)
	for i, s := range w.sections {
		if !hasRel[i] {
			continue
		}
		buf, err := w.buildReltab(s, globalBase)
		if err != nil {
			return errors.Wrapf(err, "build relocation table for section %q", s.name)
		}
		relBufs[i] = buf
	}

	// (c)/(f)/(g) assemble every section's header fields and payload,
	// in the file order outelf.c's elf_write uses: SHN_UNDEF, the
	// user sections, .comment, .shstrtab, .symtab, .strtab, then the
	// .rel sections in section order. elf32.Encode computes file
	// offsets and streams the bytes.
	specs := make([]elf32.SectionSpec, 0, 5+2*nsects)
	specs = append(specs, elf32.SectionSpec{Type: elf32.SHTNull})

	for _, s := range w.sections {
		var data []byte
		if s.typ == elf32.SHTProgbits {
			data = s.data.Bytes()
		}
		specs = append(specs, elf32.SectionSpec{
			NameOff:   s.nameOff,
			Type:      s.typ,
			Flags:     s.flags,
			Size:      s.length,
			Addralign: s.align,
			Data:      data,
		})
	}

	specs = append(specs, elf32.SectionSpec{
		NameOff: commentOff, Type: elf32.SHTProgbits, Addralign: 1,
		Size: uint32(len(comment)), Data: comment,
	})
	specs = append(specs, elf32.SectionSpec{
		NameOff: shstrtabOff, Type: elf32.SHTStrtab, Addralign: 1,
		Size: uint32(w.shstrtab.Len()), Data: w.shstrtab.Bytes(),
	})
	shstrndx := len(specs) - 1
	specs = append(specs, elf32.SectionSpec{
		NameOff: symtabOff, Type: elf32.SHTSymtab, Addralign: 4,
		Size: uint32(len(symtabBuf)), Link: uint32(nsects + 4),
		Info: globalBase, Entsize: elf32.SymSize, Data: symtabBuf,
	})
	specs = append(specs, elf32.SectionSpec{
		NameOff: strtabOff, Type: elf32.SHTStrtab, Addralign: 1,
		Size: uint32(w.strtabT.Len()), Data: w.strtabT.Bytes(),
	})

	for i, s := range w.sections {
		if !hasRel[i] {
			continue
		}
		specs = append(specs, elf32.SectionSpec{
			NameOff: relNameOff[i], Type: elf32.SHTRel, Addralign: 4,
			Size: uint32(len(relBufs[i])), Link: uint32(nsects + 3),
			Info: uint32(i + 1), Entsize: elf32.RelSize, Data: relBufs[i],
		})
	}

	if err := elf32.Encode(out, specs, shstrndx); err != nil {
		return errors.Wrap(err, "encode object file")
	}
	return w.fsync(out)
}

// buildSymtab encodes every symbol table entry in the fixed order
// original_source/outelf.c's elf_build_symtab writes them.
func (w *Writer) buildSymtab(nsects int) ([]byte, error) {
	var buf []byte
	put := func(s elf32.Sym) error {
		b, err := s.Encode()
		if err != nil {
			return err
		}
		buf = append(buf, b...)
		return nil
	}

	if err := put(elf32.Sym{}); err != nil {
		return nil, err
	}

	// FILE: name offset 1, the byte immediately after .strtab's
	// leading NUL, where New seeds the source basename.
	if err := put(elf32.Sym{Name: 1, Info: elf32.SttFile, Shndx: elf32.SHNAbs}); err != nil {
		return nil, err
	}

	for i := 1; i <= nsects+1; i++ {
		shndx := uint16(i - 1)
		if i == 1 {
			shndx = elf32.SHNAbs
		}
		if err := put(elf32.Sym{Info: elf32.SttSection, Shndx: shndx}); err != nil {
			return nil, err
		}
	}

	for _, sym := range w.symbols {
		if sym.global {
			continue
		}
		if err := put(w.encodeSym(sym, 0)); err != nil {
			return nil, err
		}
	}
	for _, sym := range w.symbols {
		if !sym.global {
			continue
		}
		if err := put(w.encodeSym(sym, elf32.SymGlobal)); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

func (w *Writer) encodeSym(sym *symbol, info uint8) elf32.Sym {
	var size uint32
	if sym.shndx == elf32.SHNCommon {
		size = sym.value
	}
	return elf32.Sym{
		Name:  sym.strpos,
		Value: sym.value,
		Size:  size,
		Info:  info,
		Shndx: uint16(sym.shndx),
	}
}

// buildReltab encodes s's pending relocations, rewriting any
// GlobalTempBase-provisional symbol reference to its final
// symbol-table index (outelf.c's elf_build_reltab).
func (w *Writer) buildReltab(s *section, globalBase uint32) ([]byte, error) {
	var buf []byte
	for _, r := range s.relocs {
		sym := r.rawSymbol
		if sym >= elf32.GlobalTempBase {
			sym = sym - elf32.GlobalTempBase + globalBase
		}
		rel := elf32.NewRel(r.address, sym, r.relative)
		b, err := rel.Encode()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return buf, nil
}
