package objfile

import (
	"testing"

	"github.com/sdefresne/nasm/internal/elf32"
)

func TestOutReserveInAbsoluteIsNoop(t *testing.T) {
	w, d := newTestWriter()
	w.Out(NoSeg, nil, PackOutType(OpReserve, 4), NoSeg, NoSeg)
	if len(d.nonFatal) != 0 {
		t.Errorf("unexpected diagnostics: %v", d.nonFatal)
	}
}

func TestOutInAbsoluteNonReserveIsNonFatal(t *testing.T) {
	w, d := newTestWriter()
	w.Out(NoSeg, []byte{1}, PackOutType(OpRawData, 1), NoSeg, NoSeg)
	if len(d.nonFatal) != 1 {
		t.Errorf("got %d NonFatal diagnostics, want 1", len(d.nonFatal))
	}
}

func TestOutReserveZeroFillsProgbits(t *testing.T) {
	w, _ := newTestWriter()
	text := w.findSection(".text")
	w.Out(text.segID, nil, PackOutType(OpReserve, 4), NoSeg, NoSeg)
	if text.length != 4 {
		t.Errorf("length = %d, want 4", text.length)
	}
	if text.data.Len() != 4 {
		t.Errorf("data.Len() = %d, want 4 zero bytes written", text.data.Len())
	}
}

func TestOutReserveInBssAdvancesLengthOnly(t *testing.T) {
	w, _ := newTestWriter()
	var bits int
	bssID := w.SectionNames(".bss", 1, &bits)
	bss := w.findSection(".bss")
	w.Out(bssID, nil, PackOutType(OpReserve, 100), NoSeg, NoSeg)
	if bss.length != 100 {
		t.Errorf("length = %d, want 100", bss.length)
	}
}

func TestOutRawDataInBssWarnsAndDiscards(t *testing.T) {
	w, d := newTestWriter()
	var bits int
	bssID := w.SectionNames(".bss", 1, &bits)
	bss := w.findSection(".bss")
	w.Out(bssID, []byte{1, 2, 3, 4}, PackOutType(OpRawData, 4), NoSeg, NoSeg)
	if len(d.warning) != 1 {
		t.Fatalf("got %d warnings, want 1", len(d.warning))
	}
	if bss.length != 4 {
		t.Errorf("length = %d, want 4", bss.length)
	}
}

func TestOutAddressCreatesRelocation(t *testing.T) {
	w, _ := newTestWriter()
	var bits int
	dataID := w.SectionNames(".data", 1, &bits)
	text := w.findSection(".text")

	w.Out(text.segID, []byte{0, 0, 0, 0}, PackOutType(OpAddress, 4), dataID, NoSeg)

	if len(text.relocs) != 1 {
		t.Fatalf("len(relocs) = %d, want 1", len(text.relocs))
	}
	r := text.relocs[0]
	if r.relative {
		t.Error("ADDRESS relocation marked relative, want absolute")
	}
	dataSection := w.findSection(".data")
	want := uint32(w.sectionIndex(dataSection) + 3)
	if r.rawSymbol != want {
		t.Errorf("rawSymbol = %d, want %d", r.rawSymbol, want)
	}
}

func TestOutRel4AdrIntraSectionPanics(t *testing.T) {
	w, _ := newTestWriter()
	text := w.findSection(".text")
	defer func() {
		if recover() == nil {
			t.Error("intra-segment REL4ADR did not panic")
		}
	}()
	w.Out(text.segID, []byte{0, 0, 0, 0}, PackOutType(OpRel4Adr, 4), text.segID, NoSeg)
}

func TestOutRel4AdrExternalGlobal(t *testing.T) {
	w, _ := newTestWriter()
	text := w.findSection(".text")
	ext := w.AllocSegment()
	w.DefLabel("ext", ext, 0, BindGlobal)

	w.Out(text.segID, []byte{0, 0, 0, 0}, PackOutType(OpRel4Adr, 4), ext, NoSeg)

	if len(text.relocs) != 1 {
		t.Fatalf("len(relocs) = %d, want 1", len(text.relocs))
	}
	r := text.relocs[0]
	if !r.relative {
		t.Error("REL4ADR relocation not marked relative")
	}
	want := elf32.GlobalTempBase + uint32(w.globalIdx.Read(ext))
	if r.rawSymbol != want {
		t.Errorf("rawSymbol = %d, want %d", r.rawSymbol, want)
	}
}

func TestOutRel2AdrUnsupported(t *testing.T) {
	w, d := newTestWriter()
	text := w.findSection(".text")
	w.Out(text.segID, []byte{0, 0}, PackOutType(OpRel2Adr, 2), NoSeg, NoSeg)
	if len(d.nonFatal) != 1 {
		t.Errorf("got %d NonFatal diagnostics, want 1", len(d.nonFatal))
	}
}

func TestOutWrtRejected(t *testing.T) {
	w, d := newTestWriter()
	text := w.findSection(".text")
	w.Out(text.segID, []byte{1}, PackOutType(OpRawData, 1), NoSeg, 99)
	if len(d.nonFatal) != 1 {
		t.Errorf("got %d NonFatal diagnostics for WRT, want 1", len(d.nonFatal))
	}
}
