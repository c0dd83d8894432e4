//go:build linux

package fingerprint

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel the file is about to be read front to back.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// adviseDone drops the file's pages from the page cache so the next
// verification reads from the medium again.
func adviseDone(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
