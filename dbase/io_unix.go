//go:build !windows
// +build !windows

package dbase

import (
	"os"

	"golang.org/x/sys/unix"
)

// openExisting opens an existing file read+write in binary, non-blocking
// mode, per spec §4.3 ("open read+write in binary mode, non-blocking").
// Advisory record locking (the teacher's unix.FcntlFlock calls) is
// deliberately not carried over here; see DESIGN.md "Dropped teacher
// behavior" — spec §5 defines a single-writer, no-locking model.
func openExisting(path string) (tableFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0644)
	if err != nil {
		return nil, newError("io-openexisting-1", err)
	}
	return &osFile{f}, nil
}

// createTruncated creates (or truncates) a file for read+write.
func createTruncated(path string) (tableFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|unix.O_NONBLOCK, 0644)
	if err != nil {
		return nil, newError("io-createtruncated-1", err)
	}
	return &osFile{f}, nil
}

// exists reports whether a file exists at path.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
