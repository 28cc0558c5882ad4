package dbase

import (
	"sort"
	"strconv"
	"strings"
)

// memoTerminator is the classic two-byte sentinel (spec §3); dialects
// with SingleByteMemoTerminator use just the first byte on read, per
// spec §4.4. Writers always append the full two-byte form, per spec
// §4.4 ("regardless of dialect's single-terminator flag on write").
var memoTerminator = [2]byte{0x1A, 0x1A}

// memoStore owns the DBT sidecar handle, the next-free-block counter,
// the buffered pointer→bytes writes for the in-flight insert/update, and
// the rollback anchor, per spec §4.4.
type memoStore struct {
	handle             tableFile
	path               string
	nextAvailableBlock uint32
	singleTerminator   bool
	buffer             map[uint32][]byte
	rollbackAnchor     *uint32
}

// newMemoStore returns a store with no DBT attached yet; open attaches an
// existing DBT (reading nextAvailableBlock from its first 4 bytes) and
// create makes a new one.
func newMemoStore(singleTerminator bool) *memoStore {
	return &memoStore{buffer: make(map[uint32][]byte), singleTerminator: singleTerminator}
}

// open attaches an existing DBT handle and reads its next-free-block
// counter from the first 4 little-endian bytes, per spec §3/§6.
func (m *memoStore) open(handle tableFile, path string) error {
	var buf [4]byte
	if _, err := handle.ReadAt(buf[:], 0); err != nil {
		return newError("memo-open-1", err)
	}
	m.handle = handle
	m.path = path
	m.nextAvailableBlock = leUint32(buf[:])
	return nil
}

// isOpen reports whether a DBT handle is attached.
func (m *memoStore) isOpen() bool { return m.handle != nil }

// create makes a brand new DBT: first block is 0x01 followed by 511
// zero bytes, nextAvailableBlock starts at 1, per spec §4.4.
func (m *memoStore) create(handle tableFile, path string) error {
	block := make([]byte, blockSize)
	block[0] = 0x01
	if _, err := handle.WriteAt(block, 0); err != nil {
		return newError("memo-create-1", err)
	}
	m.handle = handle
	m.path = path
	m.nextAvailableBlock = 1
	return nil
}

// read resolves a field's raw ASCII decimal pointer bytes and returns the
// memo body, per spec §4.4's readMemoValue.
func (m *memoStore) read(pointerRaw []byte) ([]byte, error) {
	if !m.isOpen() {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(pointerRaw))
	if trimmed == "" {
		return nil, nil
	}
	pointer, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return nil, newError("memo-read-1", err)
	}
	if pointer == 0 {
		return nil, nil
	}
	return m.readPointer(uint32(pointer))
}

// readPointer reads 512-byte blocks starting at pointer until the
// terminator is found or EOF, returning the bytes up to (excluding) the
// terminator, per spec §4.4.
func (m *memoStore) readPointer(pointer uint32) ([]byte, error) {
	var out []byte
	offset := int64(pointer) * blockSize
	block := make([]byte, blockSize)
	for {
		n, err := m.handle.ReadAt(block, offset)
		if n == 0 {
			break
		}
		chunk := block[:n]
		if idx := findTerminator(chunk, m.singleTerminator); idx >= 0 {
			out = append(out, chunk[:idx]...)
			return out, nil
		}
		out = append(out, chunk...)
		offset += int64(n)
		if err != nil {
			break
		}
	}
	return out, nil
}

// findTerminator locates the memo terminator within a block: 0x1A 0x1A
// (classic) unless single is set, in which case a lone 0x1A suffices,
// per spec §3/§4.4.
func findTerminator(chunk []byte, single bool) int {
	if single {
		for i, b := range chunk {
			if b == memoTerminator[0] {
				return i
			}
		}
		return -1
	}
	for i := 0; i+1 < len(chunk); i++ {
		if chunk[i] == memoTerminator[0] && chunk[i+1] == memoTerminator[1] {
			return i
		}
	}
	return -1
}

// write buffers value (terminator appended) for a later flush and
// returns the allocated block pointer, per spec §4.4's writeMemoValue.
// If no DBT exists yet, the caller must create one first (table.go does
// this via ensureMemo before calling write).
func (m *memoStore) write(value []byte) (uint32, error) {
	if !m.isOpen() {
		return 0, newError("memo-write-1", ErrNoMemo)
	}
	terminated := make([]byte, 0, len(value)+2)
	terminated = append(terminated, value...)
	terminated = append(terminated, memoTerminator[0], memoTerminator[1])
	blocks := (len(terminated) + blockSize - 1) / blockSize
	if blocks == 0 {
		blocks = 1
	}
	pointer := m.nextAvailableBlock
	if m.rollbackAnchor == nil {
		anchor := m.nextAvailableBlock
		m.rollbackAnchor = &anchor
	}
	m.buffer[pointer] = terminated
	m.nextAvailableBlock += uint32(blocks)
	return pointer, nil
}

// flush writes all buffered pointer→bytes pairs to the DBT in ascending
// pointer order, padding any gap with zero bytes, then clears the
// buffer and rollback anchor, per spec §4.4's flushMemoValues.
func (m *memoStore) flush() error {
	if !m.isOpen() || len(m.buffer) == 0 {
		m.buffer = make(map[uint32][]byte)
		m.rollbackAnchor = nil
		return nil
	}
	pointers := make([]uint32, 0, len(m.buffer))
	for p := range m.buffer {
		pointers = append(pointers, p)
	}
	sort.Slice(pointers, func(i, j int) bool { return pointers[i] < pointers[j] })
	for _, pointer := range pointers {
		offset := int64(pointer) * blockSize
		size, err := m.handle.Size()
		if err != nil {
			return newError("memo-flush-1", err)
		}
		if size < offset {
			pad := make([]byte, offset-size)
			if _, err := m.handle.WriteAt(pad, size); err != nil {
				return newError("memo-flush-2", err)
			}
		}
		if _, err := m.handle.WriteAt(m.buffer[pointer], offset); err != nil {
			return newError("memo-flush-3", err)
		}
	}
	m.buffer = make(map[uint32][]byte)
	m.rollbackAnchor = nil
	return nil
}

// rollback restores nextAvailableBlock to the pre-operation anchor and
// discards the buffer without touching the file, per spec §4.4's
// rollbackMemoBuffer ("no file write happens because buffered writes
// were never flushed").
func (m *memoStore) rollback() {
	if m.rollbackAnchor != nil {
		m.nextAvailableBlock = *m.rollbackAnchor
		m.rollbackAnchor = nil
	}
	m.buffer = make(map[uint32][]byte)
}

// headerBytes encodes the 4-byte next-available-block counter written
// at close, per spec §4.4/§6.
func (m *memoStore) headerBytes() [4]byte {
	var buf [4]byte
	putLeUint32(buf[:], m.nextAvailableBlock)
	return buf
}
