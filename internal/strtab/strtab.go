// Package strtab builds the two ELF string tables (.shstrtab and
// .strtab) the way spec.md §4.2 and original_source/outelf.c's
// add_sectname/strs do: an append-only concatenation of NUL-terminated
// names, seeded with a leading NUL byte.
package strtab

// Table is one append-only ELF string table.
type Table struct {
	data []byte
}

// New returns a table seeded with the mandatory leading NUL byte
// (so offset 0 is NUL, matching .shstrtab[0] == 0 / .strtab[0] == 0
// from spec.md §8, and the first Add returns offset 1).
func New() *Table {
	return &Table{data: []byte{0}}
}

// Add appends prefix+name+NUL and returns the byte offset where the
// new entry starts (add_sectname's contract, generalized to .strtab
// too since both tables share the same append rule).
func (t *Table) Add(prefix, name string) int {
	off := len(t.data)
	t.data = append(t.data, prefix...)
	t.data = append(t.data, name...)
	t.data = append(t.data, 0)
	return off
}

// Seed appends raw bytes without a trailing NUL (used once, at init,
// to seed .strtab with the source filename before the caller appends
// its terminating NUL — see NewStrTab below).
func (t *Table) Seed(s string) {
	t.data = append(t.data, s...)
}

// AppendByte appends a single raw byte (used to add the NUL that
// terminates a Seed call).
func (t *Table) AppendByte(b byte) {
	t.data = append(t.data, b)
}

// Bytes returns the accumulated table contents.
func (t *Table) Bytes() []byte {
	return t.data
}

// Len returns the current size of the table in bytes.
func (t *Table) Len() int {
	return len(t.data)
}

// NewShStrTab returns a .shstrtab seeded the way elf_init does:
// a single empty name (add_sectname("", "")), so offsets 0 and 1
// are both NUL.
func NewShStrTab() *Table {
	t := New()
	t.Add("", "")
	return t
}

// NewStrTab returns a .strtab seeded with the leading NUL plus the
// source file's basename and a trailing NUL, matching elf_init's
// saa_wbytes(strs, "\0", 1) followed by the module name.
func NewStrTab(sourceBasename string) *Table {
	t := New()
	t.Seed(sourceBasename)
	t.AppendByte(0)
	return t
}
