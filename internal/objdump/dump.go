// Package objdump formats the section, symbol, relocation, and
// disassembly tables of a parsed ELF32 object for human inspection.
// cmd/o32dump uses it as a standalone reader; cmd/o32demo uses the
// same functions for its NASM_ELF_DEBUG dump, so both tools describe
// an object file identically.
package objdump

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/arch/x86/x86asm"
)

// Sections prints one line per section header.
func Sections(w io.Writer, f *elf.File) {
	fmt.Fprintln(w, "Sections:")
	for i, s := range f.Sections {
		fmt.Fprintf(w, "  [%2d] %-12s type=%-10v flags=%-10v size=%#x align=%d\n",
			i, s.Name, s.Type, s.Flags, s.Size, s.Addralign)
	}
}

// Symbols prints one line per symbol table entry.
func Symbols(w io.Writer, f *elf.File) error {
	syms, err := f.Symbols()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Symbols:")
	for i, s := range syms {
		bind := "LOCAL"
		if elf.ST_BIND(s.Info) == elf.STB_GLOBAL {
			bind = "GLOBAL"
		}
		fmt.Fprintf(w, "  [%2d] %-20s value=%#08x size=%-6d bind=%-6s shndx=%v\n",
			i+1, s.Name, s.Value, s.Size, bind, s.Section)
	}
	return nil
}

// Relocations prints every REL entry in every .rel* section. debug/elf
// has no typed accessor for REL (only RELA), so the 8-byte records are
// parsed by hand.
func Relocations(w io.Writer, f *elf.File) error {
	for _, s := range f.Sections {
		if s.Type != elf.SHT_REL {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Relocations (%s):\n", s.Name)
		for off := 0; off+8 <= len(data); off += 8 {
			offset := binary.LittleEndian.Uint32(data[off : off+4])
			info := binary.LittleEndian.Uint32(data[off+4 : off+8])
			fmt.Fprintf(w, "  offset=%#06x sym=%-4d type=%d\n", offset, info>>8, info&0xff)
		}
	}
	return nil
}

// Disasm decodes .text as 32-bit x86 instructions.
func Disasm(w io.Writer, f *elf.File) error {
	text := f.Section(".text")
	if text == nil {
		return fmt.Errorf("no .text section")
	}
	data, err := text.Data()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Disassembly of .text:")
	for pc := 0; pc < len(data); {
		inst, err := x86asm.Decode(data[pc:], 32)
		if err != nil {
			fmt.Fprintf(w, "  %#06x  (bad: %v)\n", pc, err)
			pc++
			continue
		}
		fmt.Fprintf(w, "  %#06x  %s\n", pc, x86asm.GNUSyntax(inst, uint64(pc), nil))
		pc += inst.Len
	}
	return nil
}
