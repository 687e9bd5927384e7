package baseconv

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeStdB64(t *testing.T) {
	testCases := []struct {
		in   string
		want []byte
	}{
		{"", []byte{}},
		{"QQ==", []byte{0x41}},
		{"QUI=", []byte("AB")},
		{"QUJD", []byte("ABC")},
		{"aGVsbG8gd29ybGQ=", []byte("hello world")},
		// Missing padding is tolerated.
		{"QQ", []byte{0x41}},
		{"QUI", []byte("AB")},
		// Embedded whitespace is skipped.
		{"QU JD\n", []byte("ABC")},
		// Data after the first pad marker is ignored.
		{"QQ==QUJD", []byte{0x41}},
	}
	for _, tc := range testCases {
		got, err := DecodeStdB64([]byte(tc.in))
		if err != nil {
			t.Errorf("DecodeStdB64(%q) failed: %v", tc.in, err)
			continue
		}
		if !bytes.Equal(got, tc.want) {
			t.Errorf("DecodeStdB64(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeStdB64Invalid(t *testing.T) {
	in := []byte("QUJD")
	in = append(in, 0xFF)
	_, err := DecodeStdB64(in)
	if err == nil {
		t.Fatal("no error for invalid byte")
	}
	var ibe *InvalidByteError
	if !errors.As(err, &ibe) {
		t.Fatalf("wrong error type: %v", err)
	}
	if ibe.Byte != 0xFF || ibe.Pos != 4 {
		t.Errorf("reported byte=%#x pos=%d, want byte=0xff pos=4", ibe.Byte, ibe.Pos)
	}
}

// Agree with the stdlib on well-formed input.
func TestDecodeStdB64AgainstStdlib(t *testing.T) {
	payloads := [][]byte{
		{}, {0}, {0xFF}, []byte("a"), []byte("ab"), []byte("abc"),
		[]byte("some longer payload with \x00 and \xfe bytes inside"),
	}
	for _, p := range payloads {
		enc := base64.StdEncoding.EncodeToString(p)
		got, err := DecodeStdB64([]byte(enc))
		if err != nil {
			t.Errorf("decode of %q failed: %v", enc, err)
			continue
		}
		if !bytes.Equal(got, p) {
			t.Errorf("decode of %q = %v, want %v", enc, got, p)
		}
	}
}
