package elf32

import (
	"io"

	"github.com/pkg/errors"
)

// SectionSpec is one section header's worth of already-resolved
// values: the name offset into the final .shstrtab, the raw header
// fields, and (when the section has a file payload) the bytes to
// stream after the section header table. A nil Data with Type other
// than SHTNull (a NOBITS section, or a section with an empty payload)
// still gets a real (non-zero) offset in its header, but no bytes are
// written for it and the running file offset is not advanced,
// matching spec.md §4.6(f)/(g).
type SectionSpec struct {
	NameOff   uint32
	Type      uint32
	Flags     uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
	Data      []byte
}

// Encode writes the complete ELF32 relocatable object file: the file
// header, the section header table (with pre-computed, bit-exact file
// offsets), the inter-table alignment padding, and then every
// section's payload in order, each followed by zero-fill padding up
// to the next 16-byte boundary. shstrndx is the index of specs that
// holds .shstrtab.
func Encode(w io.Writer, specs []SectionSpec, shstrndx int) error {
	shnum := len(specs)
	headerTotal := 0x40 + ShdrSize*shnum
	pad := AlignUp(headerTotal) - headerTotal

	offsets := make([]uint32, shnum)
	running := uint32(headerTotal + pad)
	for i, sp := range specs {
		if sp.Type == SHTNull {
			offsets[i] = 0
			continue
		}
		offsets[i] = running
		if sp.Data != nil {
			running += uint32(AlignUp(len(sp.Data)))
		}
	}

	ehdr := NewEhdr(uint16(shnum), uint16(shstrndx))
	ehdrBytes, err := ehdr.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(ehdrBytes); err != nil {
		return errors.Wrap(err, "write ELF header")
	}

	for i, sp := range specs {
		sh := Shdr{
			Name:      sp.NameOff,
			Type:      sp.Type,
			Flags:     sp.Flags,
			Addr:      0,
			Offset:    offsets[i],
			Size:      sp.Size,
			Link:      sp.Link,
			Info:      sp.Info,
			Addralign: sp.Addralign,
			Entsize:   sp.Entsize,
		}
		shBytes, err := sh.Encode()
		if err != nil {
			return err
		}
		if _, err := w.Write(shBytes); err != nil {
			return errors.Wrapf(err, "write section header %d", i)
		}
	}

	if pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "write section header table padding")
		}
	}

	for i, sp := range specs {
		if sp.Data == nil {
			continue
		}
		if _, err := w.Write(sp.Data); err != nil {
			return errors.Wrapf(err, "write section %d payload", i)
		}
		trailing := AlignUp(len(sp.Data)) - len(sp.Data)
		if trailing > 0 {
			if _, err := w.Write(make([]byte, trailing)); err != nil {
				return errors.Wrapf(err, "write section %d padding", i)
			}
		}
	}

	return nil
}
