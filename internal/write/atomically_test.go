package write

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "xenial_mitaka_Sources.gz")

	n, err := Atomically(dest, func(w io.Writer) error {
		_, err := fmt.Fprint(w, "hello")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n, int64(5); got != want {
		t.Errorf("Atomically: wrote %d bytes, want %d", got, want)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "hello"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestAtomicallyError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "broken")
	failure := errors.New("connection reset")

	_, err := Atomically(dest, func(w io.Writer) error {
		fmt.Fprint(w, "partial")
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Atomically: got err %v, want %v", err, failure)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("dest %s exists after failed write", dest)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}
