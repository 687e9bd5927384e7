package cryptocore

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"log"
	"sync"
)

// RandBytes gets "n" random bytes from the platform RNG or panics.
func RandBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		// crypto/rand.Read() is documented to never return an
		// error, so this should never happen. Still, better safe than sorry.
		log.Panic("Failed to read random bytes: " + err.Error())
	}
	return b
}

// RandUint64 returns a secure random uint64.
func RandUint64() uint64 {
	b := RandBytes(8)
	return binary.BigEndian.Uint64(b)
}

// fillRandom implements the Randomize operation shared by all ciphers.
// strong reads the platform RNG directly; the cheap path serves from a
// prefetched pool, which cuts the per-call syscall cost for small fills.
func fillRandom(buf []byte, strong bool) error {
	if strong {
		_, err := rand.Read(buf)
		return err
	}
	for len(buf) > 0 {
		n := len(buf)
		if n > prefetchN {
			n = prefetchN
		}
		copy(buf[:n], randPrefetcher.read(n))
		buf = buf[n:]
	}
	return nil
}

// Number of bytes to prefetch. 512 is a good compromise between throughput
// and latency.
const prefetchN = 512

func init() {
	randPrefetcher.refill = make(chan []byte)
	go randPrefetcher.refillWorker()
}

type randPrefetcherT struct {
	sync.Mutex
	buf    bytes.Buffer
	refill chan []byte
}

func (r *randPrefetcherT) read(want int) (out []byte) {
	out = make([]byte, want)
	r.Lock()
	// Note: don't use defer, it slows us down!
	have, err := r.buf.Read(out)
	if have == want && err == nil {
		r.Unlock()
		return out
	}
	// Buffer was empty -> re-fill
	fresh := <-r.refill
	if len(fresh) != prefetchN {
		log.Panicf("randPrefetcher: refill: got %d bytes instead of %d", len(fresh), prefetchN)
	}
	r.buf.Reset()
	r.buf.Write(fresh)
	have, err = r.buf.Read(out)
	if have != want || err != nil {
		log.Panicf("randPrefetcher could not satisfy read: have=%d want=%d err=%v", have, want, err)
	}
	r.Unlock()
	return out
}

func (r *randPrefetcherT) refillWorker() {
	for {
		r.refill <- RandBytes(prefetchN)
	}
}

var randPrefetcher randPrefetcherT
