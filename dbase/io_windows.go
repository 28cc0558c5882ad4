//go:build windows
// +build windows

package dbase

import "os"

// openExisting opens an existing file read+write in binary mode. Windows
// has no regular-file equivalent of O_NONBLOCK, so this is plain
// os.OpenFile, per spec §4.3 and DESIGN.md's platform-file-open note.
func openExisting(path string) (tableFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, newError("io-openexisting-1", err)
	}
	return &osFile{f}, nil
}

// createTruncated creates (or truncates) a file for read+write.
func createTruncated(path string) (tableFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
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
