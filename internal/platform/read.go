package platform

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrNotRegular is returned when a source path no longer names a regular file.
var ErrNotRegular = errors.New("not a regular file")

// ReadExact fills dst with the content of name below root. Symlinks and
// other non-regular files are refused before they are opened. A file
// shorter than dst yields io.ErrUnexpectedEOF.
func ReadExact(root *os.Root, name string, dst []byte) error {
	info, err := root.Lstat(name)
	if err != nil {
		return err
	}
	if err := checkRegular(info); err != nil {
		return err
	}

	f, err := OpenFileNoFollow(root, name)
	if err != nil {
		return err
	}
	defer f.Close()

	// The path may have been swapped since Lstat.
	if info, err = f.Stat(); err != nil {
		return err
	}
	if err := checkRegular(info); err != nil {
		return err
	}

	if _, err := io.ReadFull(f, dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("short read: want %d bytes: %w", len(dst), io.ErrUnexpectedEOF)
		}
		return err
	}
	return nil
}

func checkRegular(info fs.FileInfo) error {
	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return ErrSymlink
	case !mode.IsRegular():
		return fmt.Errorf("%w: %s", ErrNotRegular, mode.Type())
	}
	return nil
}
