//go:build linux

package objfile

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// fsync flushes out to stable storage when it is backed by a real
// file descriptor. Tests and in-memory callers hand Cleanup a
// bytes.Buffer or similar, which is left untouched.
func (w *Writer) fsync(out io.Writer) error {
	f, ok := out.(*os.File)
	if !ok {
		return nil
	}
	if err := unix.Fsync(int(f.Fd())); err != nil {
		return errors.Wrap(err, "fsync object file")
	}
	return nil
}
