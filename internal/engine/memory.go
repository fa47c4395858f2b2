package engine

import "fmt"

// OutOfRangeError is returned by every Memory accessor whose last touched
// address falls outside the addressable range.
type OutOfRangeError struct {
	Address int
	Length  int
}

func (e *OutOfRangeError) Error() string {
	if e.Length <= 1 {
		return fmt.Sprintf("memory: address %#x is out of range", e.Address)
	}
	return fmt.Sprintf("memory: range [%#x, %#x) is out of range", e.Address, e.Address+e.Length)
}

// Memory is a flat, bounds-checked byte sequence. The Executor holds
// exclusive mutable access; there is no interior mutability.
type Memory struct {
	bytes []byte
}

// NewMemory allocates a zeroed Memory of the given length.
func NewMemory(length int) *Memory {
	return &Memory{bytes: make([]byte, length)}
}

// Len returns the addressable byte count.
func (m *Memory) Len() int {
	return len(m.bytes)
}

// ReadByte reads one byte at addr.
func (m *Memory) ReadByte(addr int) (byte, error) {
	if addr < 0 || addr >= len(m.bytes) {
		return 0, &OutOfRangeError{Address: addr, Length: 1}
	}
	return m.bytes[addr], nil
}

// ReadRange returns a borrowed view (no copy) of length bytes starting at
// addr. A zero-length range always succeeds without touching state.
func (m *Memory) ReadRange(addr, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if addr < 0 || length < 0 || addr+length > len(m.bytes) {
		return nil, &OutOfRangeError{Address: addr, Length: length}
	}
	return m.bytes[addr : addr+length], nil
}

// WriteByte writes one byte at addr.
func (m *Memory) WriteByte(addr int, val byte) error {
	if addr < 0 || addr >= len(m.bytes) {
		return &OutOfRangeError{Address: addr, Length: 1}
	}
	m.bytes[addr] = val
	return nil
}

// WriteRange copies data into memory starting at addr. A zero-length range
// always succeeds without touching state.
func (m *Memory) WriteRange(addr int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if addr < 0 || addr+len(data) > len(m.bytes) {
		return &OutOfRangeError{Address: addr, Length: len(data)}
	}
	copy(m.bytes[addr:addr+len(data)], data)
	return nil
}
