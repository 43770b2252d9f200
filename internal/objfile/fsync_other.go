//go:build !linux

package objfile

import (
	"io"
	"os"
)

// fsync flushes out to stable storage when it is backed by a real
// file, using the portable os.File.Sync since golang.org/x/sys/unix's
// Fsync call is Linux-specific.
func (w *Writer) fsync(out io.Writer) error {
	f, ok := out.(*os.File)
	if !ok {
		return nil
	}
	return f.Sync()
}
