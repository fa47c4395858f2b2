package engine

import "testing"

func TestMemoryReadWriteByte(t *testing.T) {
	m := NewMemory(16)

	if err := m.WriteByte(4, 0xAB); err != nil {
		t.Fatalf("WriteByte returned error: %v", err)
	}

	got, err := m.ReadByte(4)
	if err != nil {
		t.Fatalf("ReadByte returned error: %v", err)
	}
	if got != 0xAB {
		t.Errorf("ReadByte(4) = %#x, want 0xAB", got)
	}
}

func TestMemoryOutOfRange(t *testing.T) {
	m := NewMemory(16)

	if _, err := m.ReadByte(16); err == nil {
		t.Error("ReadByte(16) = nil error, want out-of-range error")
	}
	if err := m.WriteByte(-1, 0); err == nil {
		t.Error("WriteByte(-1, 0) = nil error, want out-of-range error")
	}
	if _, err := m.ReadRange(10, 10); err == nil {
		t.Error("ReadRange(10, 10) = nil error, want out-of-range error (16-byte memory)")
	}
}

func TestMemoryZeroLengthRangeSucceeds(t *testing.T) {
	m := NewMemory(4)

	if _, err := m.ReadRange(100, 0); err != nil {
		t.Errorf("ReadRange with zero length returned error: %v", err)
	}
	if err := m.WriteRange(100, nil); err != nil {
		t.Errorf("WriteRange with zero length returned error: %v", err)
	}
}

func TestMemoryWriteRangeAndReadRangeAreBorrowedView(t *testing.T) {
	m := NewMemory(8)

	if err := m.WriteRange(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteRange returned error: %v", err)
	}

	view, err := m.ReadRange(0, 4)
	if err != nil {
		t.Fatalf("ReadRange returned error: %v", err)
	}
	if len(view) != 4 || view[0] != 1 || view[3] != 4 {
		t.Errorf("ReadRange(0, 4) = %v, want [1 2 3 4]", view)
	}

	// Mutating the underlying memory should be visible through a
	// previously returned view, confirming it is borrowed, not copied.
	if err := m.WriteByte(0, 99); err != nil {
		t.Fatalf("WriteByte returned error: %v", err)
	}
	if view[0] != 99 {
		t.Errorf("view[0] = %d after WriteByte, want 99 (borrowed view)", view[0])
	}
}
