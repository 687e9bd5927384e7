// Package speed implements the "speed" subcommand,
// similar to "openssl speed".
// It benchmarks the ciphers and name codecs veilfs can use.
package speed

import (
	"fmt"
	"log"
	"testing"

	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/nametransform"
)

// Content encryption works on fixed-size 4 kiB blocks.
const blockSize = 4096

// wideMaxLen keeps block-mode benchmark buffers inside the wide-block
// (EME) transform limit.
const wideMaxLen = 2048

// Run - run the speed test and print the results.
func Run() {
	if cpu := cpuModelName(); cpu != "" {
		fmt.Printf("cpu: %s\n", cpu)
	}
	creg := cryptocore.StandardRegistry()
	for _, algo := range creg.List(false) {
		c, err := creg.New(algo.Name, 0)
		if err != nil {
			log.Panicf("registry listed %q but refused it: %v", algo.Name, err)
		}
		key := mustRandomKey(c)

		fmt.Printf("%-24s\t", algo.Name+"-block")
		printMbs(testing.Benchmark(bBlock(c, key)))
		if c.HasStreamMode() {
			fmt.Printf("%-24s\t", algo.Name+"-stream")
			printMbs(testing.Benchmark(bStream(c, key)))
		}
		fmt.Printf("%-24s\t", algo.Name+"-mac64")
		printMbs(testing.Benchmark(bMAC(c, key)))
	}

	// Name encoding throughput matters per-component, so report ops.
	c, err := creg.New("aes", 0)
	if err != nil {
		log.Panic(err)
	}
	key := mustRandomKey(c)
	for _, codec := range []string{"block", "block32", "stream"} {
		n, err := nametransform.StandardRegistry().New(codec, c, key)
		if err != nil {
			log.Panic(err)
		}
		fmt.Printf("%-24s\t", "name-"+codec)
		r := testing.Benchmark(bNameEncode(n))
		fmt.Printf("%10.0f names/s\n", float64(r.N)/r.T.Seconds())
	}
}

func printMbs(r testing.BenchmarkResult) {
	mbs := mbPerSec(r)
	if mbs > 0 {
		fmt.Printf("%7.2f MB/s\n", mbs)
	} else {
		fmt.Printf("    N/A\n")
	}
}

func mbPerSec(r testing.BenchmarkResult) float64 {
	if r.Bytes <= 0 || r.T <= 0 || r.N <= 0 {
		return 0
	}
	return (float64(r.Bytes) * float64(r.N) / 1e6) / r.T.Seconds()
}

func mustRandomKey(c cryptocore.Cipher) *cryptocore.CipherKey {
	key, err := c.RandomKey()
	if err != nil {
		log.Panic(err)
	}
	return key
}

// blockBuf returns a buffer sized to a multiple of the cipher's block
// size that every block mode, including wide-block, accepts.
func blockBuf(c cryptocore.Cipher) []byte {
	bs := c.BlockSize()
	n := (wideMaxLen / bs) * bs
	if n == 0 {
		n = bs
	}
	return make([]byte, n)
}

func bBlock(c cryptocore.Cipher, key *cryptocore.CipherKey) func(*testing.B) {
	return func(b *testing.B) {
		buf := blockBuf(c)
		b.SetBytes(int64(len(buf)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := c.BlockEncode(buf, uint64(i), key); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func bStream(c cryptocore.Cipher, key *cryptocore.CipherKey) func(*testing.B) {
	return func(b *testing.B) {
		buf := make([]byte, blockSize)
		b.SetBytes(int64(len(buf)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := c.StreamEncode(buf, uint64(i), key); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func bMAC(c cryptocore.Cipher, key *cryptocore.CipherKey) func(*testing.B) {
	return func(b *testing.B) {
		buf := make([]byte, blockSize)
		b.SetBytes(int64(len(buf)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			c.MAC64(buf, key, nil)
		}
	}
}

func bNameEncode(n nametransform.NameIO) func(*testing.B) {
	return func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			iv := uint64(i)
			if _, err := n.EncodeName("a-fairly-typical-filename.txt", &iv); err != nil {
				b.Fatal(err)
			}
		}
	}
}
