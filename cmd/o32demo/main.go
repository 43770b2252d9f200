// Command o32demo is a scripted front end for the ELF32 (i386) object
// writer in backend: it drives one of a handful of fixed scenarios
// end to end (section_names/deflabel/out calls, then cleanup) and
// writes the resulting object file, standing in for the real
// assembler front end that spec.md treats as out of scope.
package main

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"

	"github.com/sdefresne/nasm/backend"
	"github.com/sdefresne/nasm/internal/objdump"
	"github.com/sdefresne/nasm/internal/objfile"
)

func main() {
	scenario := flag.Int("scenario", 1, "scenario number to run (1-6)")
	output := flag.String("o", "", "output object file (default: scenario<N>.o)")
	source := flag.String("source", "demo.asm", "source file name recorded in the object file")
	flag.Parse()

	outPath := *output
	if outPath == "" {
		outPath = fmt.Sprintf("scenario%d.o", *scenario)
	}

	diag := objfile.NewStderrDiag()
	b := backend.New(diag)
	b.Init(*source, objfile.Options{Comment: env.Str("NASM_COMMENT", "")})

	fn, ok := scenarios[*scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "o32demo: no such scenario %d\n", *scenario)
		os.Exit(1)
	}
	fn(b)

	var buf bytes.Buffer
	if err := b.Cleanup(&buf); err != nil {
		fmt.Fprintf(os.Stderr, "o32demo: %v\n", err)
		os.Exit(1)
	}

	if env.Bool("NASM_ELF_DEBUG") {
		dumpDebug(buf.Bytes())
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "o32demo: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "o32demo: wrote %s\n", outPath)
}

// dumpDebug prints the section, symbol, and relocation tables of the
// object file just built, gated on NASM_ELF_DEBUG, before it is
// written to disk.
func dumpDebug(object []byte) {
	f, err := elf.NewFile(bytes.NewReader(object))
	if err != nil {
		fmt.Fprintf(os.Stderr, "o32demo: NASM_ELF_DEBUG: %v\n", err)
		return
	}
	defer f.Close()
	objdump.Sections(os.Stderr, f)
	if err := objdump.Symbols(os.Stderr, f); err != nil {
		fmt.Fprintf(os.Stderr, "o32demo: NASM_ELF_DEBUG: %v\n", err)
	}
	if err := objdump.Relocations(os.Stderr, f); err != nil {
		fmt.Fprintf(os.Stderr, "o32demo: NASM_ELF_DEBUG: %v\n", err)
	}
}

var scenarios = map[int]func(*backend.Backend){
	1: scenarioEmptyText,
	2: scenarioDataReloc,
	3: scenarioExternCall,
	4: scenarioCommon,
	5: scenarioCustomSection,
	6: scenarioBSSWarn,
}

func le32(v uint32) []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint32(p, v)
	return p
}

// scenarioEmptyText makes no out or section_names calls at all: .text
// already exists, empty, from Init.
func scenarioEmptyText(b *backend.Backend) {}

// scenarioDataReloc is spec.md §8's "mov eax, msg": a global msg
// label in .data, referenced by an OUT_ADDRESS in .text.
func scenarioDataReloc(b *backend.Backend) {
	var bits int
	text := b.SectionNames(".text", 2, &bits)
	data := b.SectionNames(".data", 1, &bits)

	b.DefLabel("msg", data, 0, backend.BindGlobal)

	b.Out(text, []byte{0xB8}, objfile.PackOutType(objfile.OpRawData, 1), backend.NoSeg, backend.NoSeg)
	b.Out(text, le32(0), objfile.PackOutType(objfile.OpAddress, 4), data, backend.NoSeg)
}

// scenarioExternCall is spec.md §8's "call ext": an undefined extern
// referenced by a PC-relative OUT_REL4ADR.
func scenarioExternCall(b *backend.Backend) {
	var bits int
	text := b.SectionNames("", 1, &bits)

	ext := b.AllocSegmentNamed("ext")
	b.DefLabel("ext", ext, 0, backend.BindGlobal)

	b.Out(text, []byte{0xE8}, objfile.PackOutType(objfile.OpRawData, 1), backend.NoSeg, backend.NoSeg)
	b.Out(text, le32(0), objfile.PackOutType(objfile.OpRel4Adr, 4), ext, backend.NoSeg)
}

// scenarioCommon is spec.md §8's "common buf 1024".
func scenarioCommon(b *backend.Backend) {
	b.DefLabel("buf", backend.NoSeg, 1024, backend.BindCommon)
}

// scenarioCustomSection is spec.md §8's
// "section .rodata progbits alloc noexec align=8".
func scenarioCustomSection(b *backend.Backend) {
	var bits int
	b.SectionNames(".rodata progbits alloc noexec align=8", 1, &bits)
}

// scenarioBSSWarn writes 4 bytes of RAWDATA into .bss, which the
// backend must warn about and discard (spec.md §8).
func scenarioBSSWarn(b *backend.Backend) {
	var bits int
	bss := b.SectionNames(".bss", 1, &bits)
	b.Out(bss, []byte{0, 0, 0, 0}, objfile.PackOutType(objfile.OpRawData, 4), backend.NoSeg, backend.NoSeg)
}
