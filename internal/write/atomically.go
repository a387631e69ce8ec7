// Package write stores downloaded artifacts without ever exposing a
// partially written file under its final name.
package write

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// Atomically calls write with a buffered writer backed by a temporary file in
// the directory of dest, then renames the file to dest. On error the
// temporary file is removed and dest is left untouched. It returns the number
// of bytes written.
func Atomically(dest string, write func(io.Writer) error) (n int64, err error) {
	f, err := os.CreateTemp(filepath.Dir(dest), ".cmadison-")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	defer f.Close()

	bufw := bufio.NewWriter(f)
	cw := &countingWriter{w: bufw}
	if err := write(cw); err != nil {
		return 0, err
	}

	if err := bufw.Flush(); err != nil {
		return 0, err
	}

	if err := f.Chmod(0644); err != nil {
		return 0, err
	}

	if err := f.Close(); err != nil {
		return 0, err
	}

	return cw.n, os.Rename(f.Name(), dest)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
