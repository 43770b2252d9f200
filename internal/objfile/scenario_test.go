package objfile

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

func le32(v uint32) []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint32(p, v)
	return p
}

func parseOutput(t *testing.T, w *Writer) *elf.File {
	t.Helper()
	var buf bytes.Buffer
	if err := w.Cleanup(&buf); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

// TestScenarioEmptyText is spec.md §8 scenario 1.
func TestScenarioEmptyText(t *testing.T) {
	w, _ := newTestWriter()
	f := parseOutput(t, w)

	if len(f.Sections) != 6 {
		t.Fatalf("len(Sections) = %d, want 6", len(f.Sections))
	}
	text := f.Sections[1]
	if text.Name != ".text" || text.Size != 0 {
		t.Errorf("text = %+v, want empty .text", text)
	}
	wantFlags := elf.SHF_ALLOC | elf.SHF_EXECINSTR
	if text.Flags != wantFlags {
		t.Errorf("text.Flags = %v, want %v", text.Flags, wantFlags)
	}
	if text.Addralign != 16 {
		t.Errorf("text.Addralign = %d, want 16", text.Addralign)
	}
	for _, s := range f.Sections {
		if s.Type == elf.SHT_REL {
			t.Errorf("unexpected relocation section %q", s.Name)
		}
	}
}

// TestScenarioDataReloc is spec.md §8 scenario 2.
func TestScenarioDataReloc(t *testing.T) {
	w, _ := newTestWriter()
	var bits int
	text := w.SectionNames(".text", 2, &bits)
	data := w.SectionNames(".data", 1, &bits)
	w.DefLabel("msg", data, 0, BindGlobal)

	w.Out(text, []byte{0xB8}, PackOutType(OpRawData, 1), NoSeg, NoSeg)
	w.Out(text, le32(0), PackOutType(OpAddress, 4), data, NoSeg)

	f := parseOutput(t, w)

	textSec := f.Section(".text")
	if textSec == nil {
		t.Fatal("no .text section")
	}
	got, err := textSec.Data()
	if err != nil {
		t.Fatalf("text.Data(): %v", err)
	}
	want := []byte{0xB8, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf(".text = % x, want % x", got, want)
	}

	rel := f.Section(".rel.text")
	if rel == nil {
		t.Fatal("no .rel.text section")
	}
	raw, err := rel.Data()
	if err != nil {
		t.Fatalf("rel.Data(): %v", err)
	}
	if len(raw) != 8 {
		t.Fatalf("len(rel data) = %d, want 8", len(raw))
	}
	offset := binary.LittleEndian.Uint32(raw[0:4])
	if offset != 1 {
		t.Errorf("relocation offset = %d, want 1", offset)
	}
	info := binary.LittleEndian.Uint32(raw[4:8])
	if typ := info & 0xff; typ != 1 { // R_386_32
		t.Errorf("relocation type = %d, want 1 (R_386_32)", typ)
	}
}

// TestScenarioExternCall is spec.md §8 scenario 3.
func TestScenarioExternCall(t *testing.T) {
	w, _ := newTestWriter()
	text := w.findSection(".text").segID
	ext := w.AllocSegment()
	w.DefLabel("ext", ext, 0, BindGlobal)

	w.Out(text, []byte{0xE8}, PackOutType(OpRawData, 1), NoSeg, NoSeg)
	w.Out(text, le32(0), PackOutType(OpRel4Adr, 4), ext, NoSeg)

	f := parseOutput(t, w)

	textSec := f.Section(".text")
	got, err := textSec.Data()
	if err != nil {
		t.Fatalf("text.Data(): %v", err)
	}
	want := []byte{0xE8, 0xFC, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf(".text = % x, want % x", got, want)
	}

	syms, err := f.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	found := false
	for _, s := range syms {
		if s.Name == "ext" {
			found = true
			if elf.ST_BIND(s.Info) != elf.STB_GLOBAL {
				t.Errorf("ext binding = %v, want STB_GLOBAL", elf.ST_BIND(s.Info))
			}
			if s.Section != elf.SHN_UNDEF {
				t.Errorf("ext section = %v, want SHN_UNDEF", s.Section)
			}
		}
	}
	if !found {
		t.Error("symbol \"ext\" not found in output")
	}
}

// TestScenarioCommon is spec.md §8 scenario 4.
func TestScenarioCommon(t *testing.T) {
	w, _ := newTestWriter()
	w.DefLabel("buf", NoSeg, 1024, BindCommon)

	f := parseOutput(t, w)
	syms, err := f.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	for _, s := range syms {
		if s.Name != "buf" {
			continue
		}
		if elf.ST_BIND(s.Info) != elf.STB_GLOBAL {
			t.Errorf("buf binding = %v, want STB_GLOBAL", elf.ST_BIND(s.Info))
		}
		if s.Section != elf.SHN_COMMON {
			t.Errorf("buf section = %v, want SHN_COMMON", s.Section)
		}
		if s.Value != 1024 || s.Size != 1024 {
			t.Errorf("buf value/size = %d/%d, want 1024/1024", s.Value, s.Size)
		}
		return
	}
	t.Error("symbol \"buf\" not found in output")
}

// TestScenarioCustomSection is spec.md §8 scenario 5.
func TestScenarioCustomSection(t *testing.T) {
	w, _ := newTestWriter()
	var bits int
	w.SectionNames(".rodata progbits alloc noexec align=8", 1, &bits)

	f := parseOutput(t, w)
	s := f.Section(".rodata")
	if s == nil {
		t.Fatal("no .rodata section")
	}
	if s.Type != elf.SHT_PROGBITS {
		t.Errorf("Type = %v, want SHT_PROGBITS", s.Type)
	}
	if s.Flags != elf.SHF_ALLOC {
		t.Errorf("Flags = %v, want SHF_ALLOC", s.Flags)
	}
	if s.Addralign != 8 {
		t.Errorf("Addralign = %d, want 8", s.Addralign)
	}
}

// TestScenarioBSSWarn is spec.md §8 scenario 6.
func TestScenarioBSSWarn(t *testing.T) {
	w, d := newTestWriter()
	var bits int
	bss := w.SectionNames(".bss", 1, &bits)
	w.Out(bss, []byte{0, 0, 0, 0}, PackOutType(OpRawData, 4), NoSeg, NoSeg)

	if len(d.warning) != 1 {
		t.Fatalf("got %d warnings, want 1", len(d.warning))
	}

	f := parseOutput(t, w)
	s := f.Section(".bss")
	if s == nil {
		t.Fatal("no .bss section")
	}
	if s.Size != 4 {
		t.Errorf("Size = %d, want 4", s.Size)
	}
	if s.Type != elf.SHT_NOBITS {
		t.Errorf("Type = %v, want SHT_NOBITS", s.Type)
	}
}

// TestSymtabOrderingAndInfo checks spec.md §8's symbol-table ordering
// invariant directly against the encoded bytes.
func TestSymtabOrderingAndInfo(t *testing.T) {
	w, _ := newTestWriter()
	var bits int
	data := w.SectionNames(".data", 1, &bits)
	w.DefLabel("local1", data, 4, BindLocal)
	w.DefLabel("glob1", data, 8, BindGlobal)

	f := parseOutput(t, w)
	symtab := f.Section(".symtab")
	if symtab == nil {
		t.Fatal("no .symtab section")
	}
	nsects := len(f.Sections) - 5 // total - (comment,shstrtab,symtab,strtab,SHN_UNDEF)
	wantInfo := uint32(nsects + 3 + 1) // +1 local DefLabel entry
	if symtab.Info != wantInfo {
		t.Errorf("symtab.Info = %d, want %d", symtab.Info, wantInfo)
	}

	syms, err := f.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) < 2 {
		t.Fatalf("len(syms) = %d, want at least 2", len(syms))
	}
	last := syms[len(syms)-1]
	if last.Name != "glob1" {
		t.Errorf("last symbol = %q, want \"glob1\" (globals sort last)", last.Name)
	}
}
