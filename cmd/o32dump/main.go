// Command o32dump is a read-only inspector for the object files
// backend produces: it parses them with the standard library's
// debug/elf (spec.md's "conforming ELF32 reader") and prints section,
// symbol, and relocation tables, with an optional -disasm flag that
// decodes .text as i386 instructions.
package main

import (
	"debug/elf"
	"flag"
	"fmt"
	"os"

	"github.com/sdefresne/nasm/internal/objdump"
)

func main() {
	disasm := flag.Bool("disasm", false, "disassemble the .text section")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: o32dump [-disasm] <object-file>")
		os.Exit(1)
	}

	f, err := elf.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "o32dump: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_386 {
		fmt.Fprintf(os.Stderr, "o32dump: not an ELF32 i386 object (class=%v machine=%v)\n", f.Class, f.Machine)
		os.Exit(1)
	}

	objdump.Sections(os.Stdout, f)
	if err := objdump.Symbols(os.Stdout, f); err != nil {
		fmt.Fprintf(os.Stderr, "o32dump: %v\n", err)
		os.Exit(1)
	}
	if err := objdump.Relocations(os.Stdout, f); err != nil {
		fmt.Fprintf(os.Stderr, "o32dump: %v\n", err)
		os.Exit(1)
	}
	if *disasm {
		if err := objdump.Disasm(os.Stdout, f); err != nil {
			fmt.Fprintf(os.Stderr, "o32dump: %v\n", err)
			os.Exit(1)
		}
	}
}
