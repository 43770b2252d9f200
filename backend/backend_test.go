package backend

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/sdefresne/nasm/internal/objfile"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"foo.asm", "foo.o"},
		{"foo", "foo.o"},
		{"dir.with.dots/foo", "dir.with.dots/foo.o"},
		{"dir.with.dots/foo.asm", "dir.with.dots/foo.o"},
	}
	for _, tt := range tests {
		if got := Filename(tt.in); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type quietDiag struct{}

func (quietDiag) NonFatal(string, ...interface{}) {}
func (quietDiag) Warning(string, ...interface{})  {}
func (quietDiag) Panic(format string, args ...interface{}) {
	panic("unexpected panic in test")
}

func TestBackendEndToEnd(t *testing.T) {
	b := New(quietDiag{})
	b.Init("t.asm", objfile.Options{})

	var bits int
	text := b.SectionNames("", 1, &bits)
	b.Out(text, []byte{0x90}, objfile.PackOutType(objfile.OpRawData, 1), NoSeg, NoSeg)

	var buf bytes.Buffer
	if err := b.Cleanup(&buf); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}
	defer f.Close()

	if f.Type != elf.ET_REL || f.Machine != elf.EM_386 {
		t.Errorf("header = {%v %v}, want {ET_REL EM_386}", f.Type, f.Machine)
	}
	textSec := f.Section(".text")
	if textSec == nil {
		t.Fatal("no .text section")
	}
	data, err := textSec.Data()
	if err != nil {
		t.Fatalf("text.Data(): %v", err)
	}
	if !bytes.Equal(data, []byte{0x90}) {
		t.Errorf(".text = % x, want [90]", data)
	}
}

func TestSegBaseIsIdentity(t *testing.T) {
	b := New(quietDiag{})
	b.Init("t.asm", objfile.Options{})
	if got := b.SegBase(42); got != 42 {
		t.Errorf("SegBase(42) = %d, want 42", got)
	}
}

func TestDirectiveReturnsZero(t *testing.T) {
	b := New(quietDiag{})
	b.Init("t.asm", objfile.Options{})
	if got := b.Directive("unknown", "value", 1); got != 0 {
		t.Errorf("Directive(...) = %d, want 0", got)
	}
}
