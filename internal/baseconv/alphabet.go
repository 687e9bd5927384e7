package baseconv

// The 64-symbol alphabet is ",-0123456789A..Za..z". Standard base64 uses
// "+/" or "./" for the two extra symbols; we use ",-" instead because "/"
// is reserved by the filesystem and keeping "." out of encoded names leaves
// dot-names free to carry special meaning.
var b64Head = []byte(",-0123456789")

// B64ToASCII maps 6-bit values to alphabet characters, in place.
// Values are always in range by construction (they come out of the
// bit recoder), so there is no failure mode.
func B64ToASCII(buf []byte) {
	for i, ch := range buf {
		switch {
		case ch > 37:
			buf[i] = ch - 38 + 'a'
		case ch > 11:
			buf[i] = ch - 12 + 'A'
		default:
			buf[i] = b64Head[ch]
		}
	}
}

// ASCIIToB64 is the inverse of B64ToASCII, in place. A byte outside the
// alphabet stops the conversion with an InvalidByteError; the buffer
// prefix before that byte is already converted.
func ASCIIToB64(buf []byte) error {
	for i, ch := range buf {
		switch {
		case ch >= 'a' && ch <= 'z':
			buf[i] = ch - 'a' + 38
		case ch >= 'A' && ch <= 'Z':
			buf[i] = ch - 'A' + 12
		case ch >= '0' && ch <= '9':
			buf[i] = ch - '0' + 2
		case ch == '-':
			buf[i] = 1
		case ch == ',':
			buf[i] = 0
		default:
			return &InvalidByteError{Byte: ch, Pos: i}
		}
	}
	return nil
}

// B32ToASCII maps 5-bit values to the 32-symbol alphabet "A..Z2..7",
// in place. Used on case-insensitive filesystems.
func B32ToASCII(buf []byte) {
	for i, ch := range buf {
		if ch < 26 {
			buf[i] = ch + 'A'
		} else {
			buf[i] = ch - 26 + '2'
		}
	}
}

// ASCIIToB32 is the inverse of B32ToASCII, in place. Lowercase input is
// accepted: the alphabet survives filesystems that fold case. A byte
// outside the alphabet stops the conversion with an InvalidByteError.
func ASCIIToB32(buf []byte) error {
	for i, ch := range buf {
		orig := ch
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		switch {
		case ch >= 'A' && ch <= 'Z':
			buf[i] = ch - 'A'
		case ch >= '2' && ch <= '7':
			buf[i] = ch - '2' + 26
		default:
			return &InvalidByteError{Byte: orig, Pos: i}
		}
	}
	return nil
}
