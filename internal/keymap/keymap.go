// Package keymap holds the CHIP-8 hexadecimal keypad layout. config builds
// its default 1234/QWER/ASDF/ZXCV key map from it, which the pixel backend
// consumes; the sdl and ebiten backends carry their own key tables.
package keymap

// Keys is the keypad in display order:
//
//	1 2 3 C
//	4 5 6 D
//	7 8 9 E
//	A 0 B F
var Keys = [16]byte{
	0x1, 0x2, 0x3, 0xC,
	0x4, 0x5, 0x6, 0xD,
	0x7, 0x8, 0x9, 0xE,
	0xA, 0x0, 0xB, 0xF,
}

// Index returns the position of a CHIP-8 key index within Keys, or -1 if
// key is not on the keypad.
func Index(key byte) int {
	for i, k := range Keys {
		if k == key {
			return i
		}
	}
	return -1
}
