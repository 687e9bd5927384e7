package baseconv

import "fmt"

// Standard (RFC 4648) base64 decoding for key material in config files.
// Filenames never pass through here, they use the comma-hyphen alphabet.
//
// encoding/base64 is not used because the contract differs: embedded
// whitespace must be skipped, a missing "=" terminator must be tolerated
// with best-effort handling of the last 1-2 residual bytes, and a decode
// failure must report the offending byte's value, not just its position.

// Byte classes for the standard-decode table.
const (
	classWhitespace = 64
	classPad        = 65
	classInvalid    = 66
)

var stdDecMap = buildStdDecMap()

func buildStdDecMap() (m [256]byte) {
	for i := range m {
		m[i] = classInvalid
	}
	for _, c := range []byte("\t\n\r ") {
		m[c] = classWhitespace
	}
	m['='] = classPad
	m['+'] = 62
	m['/'] = 63
	for c := byte('0'); c <= '9'; c++ {
		m[c] = c - '0' + 52
	}
	for c := byte('A'); c <= 'Z'; c++ {
		m[c] = c - 'A'
	}
	for c := byte('a'); c <= 'z'; c++ {
		m[c] = c - 'a' + 26
	}
	return m
}

// InvalidByteError reports the first byte of an input that is not part of
// the alphabet being decoded.
type InvalidByteError struct {
	Byte byte
	Pos  int
}

func (e *InvalidByteError) Error() string {
	return fmt.Sprintf("invalid byte %#02x at position %d", e.Byte, e.Pos)
}

// DecodeStdB64 decodes standard base64 text. Whitespace is skipped, the
// first pad character ends the data, and input whose length is not a
// multiple of 4 is decoded best-effort: 18 or 12 pending bits yield the
// 2 or 1 complete trailing bytes they contain.
func DecodeStdB64(in []byte) ([]byte, error) {
	out := make([]byte, 0, len(in)/4*3+2)
	// Sentinel bit marks how many 6-bit groups are buffered.
	buf := uint32(1)

loop:
	for pos := 0; pos < len(in); pos++ {
		v := in[pos]
		switch c := stdDecMap[v]; c {
		case classWhitespace:
			continue
		case classInvalid:
			return nil, &InvalidByteError{Byte: v, Pos: pos}
		case classPad:
			break loop
		default:
			buf = buf<<6 | uint32(c)
			if buf&0x1000000 != 0 {
				out = append(out, byte(buf>>16), byte(buf>>8), byte(buf))
				buf = 1
			}
		}
	}

	// 3 of 4 input bytes seen: two complete output bytes are pending.
	if buf&0x40000 != 0 {
		out = append(out, byte(buf>>10), byte(buf>>2))
	} else if buf&0x1000 != 0 {
		out = append(out, byte(buf>>4))
	}
	return out, nil
}
