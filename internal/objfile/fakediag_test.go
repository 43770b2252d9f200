package objfile

import "fmt"

// fakeDiag records every diagnostic instead of printing it, so tests
// can assert on what the writer reported.
type fakeDiag struct {
	nonFatal []string
	warning  []string
}

func (d *fakeDiag) NonFatal(format string, args ...interface{}) {
	d.nonFatal = append(d.nonFatal, fmt.Sprintf(format, args...))
}

func (d *fakeDiag) Warning(format string, args ...interface{}) {
	d.warning = append(d.warning, fmt.Sprintf(format, args...))
}

func (d *fakeDiag) Panic(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// seqAlloc hands out 0, 2, 4, ... like internal/segalloc.Allocator,
// duplicated here so objfile's tests don't import a sibling package
// just for a three-line counter.
type seqAlloc struct {
	next  int
	named map[string]int
}

func (a *seqAlloc) Alloc() int {
	id := a.next
	a.next += 2
	return id
}

func (a *seqAlloc) AllocFromName(name string) int {
	if a.named == nil {
		a.named = make(map[string]int)
	}
	if id, ok := a.named[name]; ok {
		return id
	}
	id := a.Alloc()
	a.named[name] = id
	return id
}
