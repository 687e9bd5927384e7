package nametransform

import (
	"fmt"
)

// padBlock appends PKCS#7-style padding so that len is a multiple of bs.
// At least one byte is always added, so unpadBlock can never be ambiguous.
func padBlock(b []byte, bs int) []byte {
	padLen := bs - len(b)%bs
	if padLen == 0 {
		padLen = bs
	}
	padded := make([]byte, len(b)+padLen)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// unpadBlock validates and removes the padding added by padBlock.
// The errors carry detail for logging; callers on the decode path must
// collapse them into a generic integrity failure to avoid a padding
// oracle.
func unpadBlock(b []byte, bs int) ([]byte, error) {
	if len(b) == 0 || len(b)%bs != 0 {
		return nil, fmt.Errorf("unaligned padded length %d", len(b))
	}
	padLen := int(b[len(b)-1])
	if padLen <= 0 || padLen > bs {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}
	if padLen >= len(b) {
		return nil, fmt.Errorf("padding %d swallows the whole name (len %d)", padLen, len(b))
	}
	for i := len(b) - padLen; i < len(b); i++ {
		if int(b[i]) != padLen {
			return nil, fmt.Errorf("inconsistent padding byte at %d", i)
		}
	}
	return b[:len(b)-padLen], nil
}
