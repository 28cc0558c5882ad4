package dbase

import (
	"path/filepath"
	"testing"
)

func newTempMemoHandle(t *testing.T) (tableFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dbt")
	f, err := createTruncated(path)
	if err != nil {
		t.Fatalf("createTruncated: %v", err)
	}
	return f, path
}

// Memo rollback: a write buffers a pointer allocation; rollback restores
// nextAvailableBlock and clears the buffer without touching the file.
func TestMemoRollbackLeavesFileUntouched(t *testing.T) {
	handle, path := newTempMemoHandle(t)
	defer handle.Close()

	store := newMemoStore(false)
	if err := store.create(handle, path); err != nil {
		t.Fatalf("create: %v", err)
	}
	sizeBefore, err := handle.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	counterBefore := store.nextAvailableBlock

	if _, err := store.write([]byte("first write, never flushed")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if store.nextAvailableBlock == counterBefore {
		t.Fatalf("write should advance nextAvailableBlock before flush")
	}
	if len(store.buffer) == 0 {
		t.Fatalf("write should buffer the pending block")
	}

	store.rollback()

	if store.nextAvailableBlock != counterBefore {
		t.Fatalf("nextAvailableBlock after rollback = %d, want %d", store.nextAvailableBlock, counterBefore)
	}
	if len(store.buffer) != 0 {
		t.Fatalf("buffer after rollback = %d entries, want 0", len(store.buffer))
	}
	sizeAfter, err := handle.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if sizeAfter != sizeBefore {
		t.Fatalf("file size changed by rollback: before %d, after %d", sizeBefore, sizeAfter)
	}
}

// flush writes buffered blocks in ascending pointer order and clears the
// buffer/rollback anchor.
func TestMemoFlushWritesAndClearsBuffer(t *testing.T) {
	handle, path := newTempMemoHandle(t)
	defer handle.Close()

	store := newMemoStore(false)
	if err := store.create(handle, path); err != nil {
		t.Fatalf("create: %v", err)
	}
	pointer, err := store.write([]byte("memo body"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(store.buffer) != 0 {
		t.Fatalf("buffer not cleared after flush")
	}
	body, err := store.readPointer(pointer)
	if err != nil {
		t.Fatalf("readPointer: %v", err)
	}
	if string(body) != "memo body" {
		t.Fatalf("readPointer = %q, want %q", body, "memo body")
	}
}

// findTerminator: classic two-byte terminator vs. single-byte (SMT) mode.
func TestFindTerminator(t *testing.T) {
	classic := []byte{'h', 'i', 0x1A, 0x1A, 'x'}
	if idx := findTerminator(classic, false); idx != 2 {
		t.Fatalf("findTerminator(classic) = %d, want 2", idx)
	}
	single := []byte{'h', 'i', 0x1A, 'x'}
	if idx := findTerminator(single, true); idx != 2 {
		t.Fatalf("findTerminator(single) = %d, want 2", idx)
	}
	if idx := findTerminator([]byte("no terminator here"), false); idx != -1 {
		t.Fatalf("findTerminator(no terminator) = %d, want -1", idx)
	}
}

func TestMemoCreateFirstBlockReserved(t *testing.T) {
	handle, path := newTempMemoHandle(t)
	defer handle.Close()

	store := newMemoStore(false)
	if err := store.create(handle, path); err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.nextAvailableBlock != 1 {
		t.Fatalf("nextAvailableBlock after create = %d, want 1", store.nextAvailableBlock)
	}
	var block [blockSize]byte
	if _, err := handle.ReadAt(block[:], 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if block[0] != 0x01 {
		t.Fatalf("first block marker = %#x, want 0x01", block[0])
	}
}

func TestMemoHeaderBytesRoundTrip(t *testing.T) {
	store := newMemoStore(false)
	store.nextAvailableBlock = 42
	hdr := store.headerBytes()
	if leUint32(hdr[:]) != 42 {
		t.Fatalf("headerBytes round trip = %d, want 42", leUint32(hdr[:]))
	}
}
