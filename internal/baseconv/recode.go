// Package baseconv repacks binary data between power-of-two bit widths and
// renders the resulting units as filesystem-legal text. It is the framing
// layer below filename encryption: encrypted bytes are split into 6-bit (or
// 5-bit) units which then map 1:1 onto a restricted character alphabet.
package baseconv

import "log"

// checkPow validates a unit width. Widths are a static property of the
// caller, so a bad value is a programming error and we fail fast.
func checkPow(pow int) {
	if pow <= 0 || pow >= 32 {
		log.Panicf("baseconv: unit width %d out of range (0,32)", pow)
	}
}

// ChangedLen returns the number of dst2Pow-bit units produced by recoding
// srcLen units of src2Pow bits. If emitPartial is true, a trailing unit
// holding fewer than dst2Pow valid bits counts as well.
func ChangedLen(srcLen, src2Pow, dst2Pow int, emitPartial bool) int {
	checkPow(src2Pow)
	checkPow(dst2Pow)
	totalBits := srcLen * src2Pow
	n := totalBits / dst2Pow
	if emitPartial && totalBits%dst2Pow != 0 {
		n++
	}
	return n
}

// ChangeBase2 converts between two powers of two, stored as the low bits of
// the bytes in the slices. Source units are shifted onto the high end of an
// accumulator; completed destination units fall off the low end.
//
// If emitPartial is true, bits left over after the last full destination
// unit are emitted as a final short unit; otherwise they are discarded
// (they are zero padding when reversing an expanding recode).
func ChangeBase2(src []byte, src2Pow, dst2Pow int, emitPartial bool) []byte {
	dst := make([]byte, 0, ChangedLen(len(src), src2Pow, dst2Pow, emitPartial))
	var work uint64
	workBits := 0
	mask := byte(1<<dst2Pow - 1)

	for _, u := range src {
		work |= uint64(u) << workBits
		workBits += src2Pow

		for workBits >= dst2Pow {
			dst = append(dst, byte(work)&mask)
			work >>= dst2Pow
			workBits -= dst2Pow
		}
	}
	if emitPartial && workBits > 0 {
		dst = append(dst, byte(work)&mask)
	}
	return dst
}

// ChangeBase2Inline is ChangeBase2 over the backing array of buf: the result
// reuses buf's storage and is returned re-sliced to the output length.
// cap(buf) must cover the output length (the caller sizes the buffer with
// ChangedLen up front), otherwise ChangeBase2Inline panics.
//
// The original in-place formulation recurses forward through the source and
// writes each output unit on the way back out of the recursion so that no
// write clobbers unread input. With slice bounds checking there is nothing
// to gain from that trick, so we recode through a temporary and copy back.
func ChangeBase2Inline(buf []byte, src2Pow, dst2Pow int, emitPartial bool) []byte {
	outLen := ChangedLen(len(buf), src2Pow, dst2Pow, emitPartial)
	if outLen > cap(buf) {
		log.Panicf("baseconv: inline recode needs capacity %d, buffer has %d", outLen, cap(buf))
	}
	tmp := ChangeBase2(buf, src2Pow, dst2Pow, emitPartial)
	out := buf[:outLen]
	copy(out, tmp)
	return out
}
