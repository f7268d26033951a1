// Package rxhash implements RX/OWO, the memory-hard proof-of-work hash used
// to seal every block. It is a line-for-line port of the RandomX-inspired
// algorithm in the original implementation's calculate_hash: a large
// scratchpad is filled from a seed derived from the block preimage, then
// mixed for a configurable number of iterations with data-dependent memory
// accesses before folding the mix registers and a scratchpad sample back
// into a final SHA3-256 digest.
package rxhash

import (
	"encoding/binary"
	"encoding/hex"
	"math/bits"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sys/unix"
)

const (
	// DefaultScratchpadSize is the working-set size mixed on every hash,
	// the single largest lever on the algorithm's memory-hardness.
	DefaultScratchpadSize = 2 * 1024 * 1024
	// DefaultIterations is the number of mix rounds per hash (§9 open
	// question: resolved to 1024 for this build; 2048 remains available
	// via OWONERO_MINING_ITERATIONS for operators who want the original's
	// heavier profile).
	DefaultIterations = 1024
	// L1CacheSize and L2CacheSize bound two of the four memory-access
	// patterns per round, simulating cache-level locality the way
	// RandomX's dataset access patterns do.
	L1CacheSize = 16 * 1024
	L2CacheSize = 256 * 1024

	minScratchpadSize = 1024
)

// Hasher owns a reusable scratchpad so repeated Sum calls — as a miner does
// once per nonce — do not reallocate 2MB of working memory on every attempt.
// A Hasher is not safe for concurrent use; each mining worker owns one.
type Hasher struct {
	scratchpad []byte
	iterations int
}

// Option configures a new Hasher.
type Option func(*hasherConfig)

type hasherConfig struct {
	scratchpadSize int
	iterations     int
	useHugepages   bool
}

// WithScratchpadSize overrides DefaultScratchpadSize. Values below 1024
// bytes are ignored, matching the original's env-var validation.
func WithScratchpadSize(bytes int) Option {
	return func(c *hasherConfig) {
		if bytes >= minScratchpadSize {
			c.scratchpadSize = bytes
		}
	}
}

// WithIterations overrides DefaultIterations.
func WithIterations(n int) Option {
	return func(c *hasherConfig) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// WithHugepages attempts to back the scratchpad with a madvise(MADV_HUGEPAGE)
// mapping on Linux. It is a best-effort hint: failures are swallowed and the
// Hasher falls back to an ordinary heap allocation.
func WithHugepages(enabled bool) Option {
	return func(c *hasherConfig) { c.useHugepages = enabled }
}

// NewHasher builds a Hasher, applying defaults then the given Options.
func NewHasher(opts ...Option) *Hasher {
	c := &hasherConfig{
		scratchpadSize: DefaultScratchpadSize,
		iterations:     DefaultIterations,
	}
	for _, opt := range opts {
		opt(c)
	}

	return &Hasher{
		scratchpad: allocateScratchpad(c.scratchpadSize, c.useHugepages),
		iterations: c.iterations,
	}
}

// NewHasherFromEnv builds a Hasher honoring OWONERO_SCRATCHPAD_SIZE,
// OWONERO_MINING_ITERATIONS and OWONERO_USE_HUGEPAGES, mirroring the
// original implementation's env-var knobs.
func NewHasherFromEnv() *Hasher {
	return NewHasher(
		WithScratchpadSize(ScratchpadSizeFromEnv()),
		WithIterations(IterationsFromEnv()),
		WithHugepages(HugepagesFromEnv()),
	)
}

// ScratchpadSizeFromEnv reads OWONERO_SCRATCHPAD_SIZE, defaulting to
// DefaultScratchpadSize.
func ScratchpadSizeFromEnv() int {
	if v, err := strconv.Atoi(os.Getenv("OWONERO_SCRATCHPAD_SIZE")); err == nil {
		return v
	}
	return DefaultScratchpadSize
}

// IterationsFromEnv reads OWONERO_MINING_ITERATIONS, defaulting to
// DefaultIterations.
func IterationsFromEnv() int {
	if v, err := strconv.Atoi(os.Getenv("OWONERO_MINING_ITERATIONS")); err == nil {
		return v
	}
	return DefaultIterations
}

// HugepagesFromEnv reads OWONERO_USE_HUGEPAGES: unset, "0" or "false"
// (case-insensitive) leave hugepages off, matching the original's default;
// any other value turns them on.
func HugepagesFromEnv() bool {
	v := strings.ToLower(os.Getenv("OWONERO_USE_HUGEPAGES"))
	return v != "" && v != "0" && v != "false"
}

func allocateScratchpad(size int, useHugepages bool) []byte {
	if useHugepages && runtime.GOOS == "linux" {
		buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		if err == nil {
			_ = unix.Madvise(buf, unix.MADV_HUGEPAGE)
			return buf
		}
	}
	return make([]byte, size)
}

// Sum computes the RX/OWO digest of data (the canonical JSON preimage of a
// block's hashable fields), returning the raw 32-byte SHA3-256 result.
func (h *Hasher) Sum(data []byte) [32]byte {
	seed := sha3.Sum256(data)

	spWords := len(h.scratchpad) / 8
	rngState := binary.LittleEndian.Uint64(seed[0:8])
	for i := 0; i < spWords; i++ {
		rngState = rngState*6364136223846793005 + 1
		v := (rngState >> 1) ^ (rngState << 33)
		binary.LittleEndian.PutUint64(h.scratchpad[i*8:], v)
	}

	a := binary.LittleEndian.Uint64(seed[8:16])
	b := binary.LittleEndian.Uint64(seed[16:24])
	c := binary.LittleEndian.Uint64(seed[24:32])

	spLen := len(h.scratchpad)
	readWord := func(idx uint64) uint64 {
		return binary.LittleEndian.Uint64(h.scratchpad[idx*8:])
	}
	writeWord := func(idx, v uint64) {
		binary.LittleEndian.PutUint64(h.scratchpad[idx*8:], v)
	}

	for iter := 0; iter < h.iterations; iter++ {
		idx1 := ((a + b) * c) % uint64(spWords)
		memVal1 := readWord(idx1)

		idx2 := uint64((iter*8+int(a%1024))%spLen) / 8
		memVal2 := readWord(idx2)

		l1Idx := (a % (L1CacheSize / 8)) % uint64(spWords)
		l1Val := readWord(l1Idx)

		l2Idx := (b % (L2CacheSize / 8)) % uint64(spWords)
		l2Val := readWord(l2Idx)

		a = a*memVal1 + l1Val
		b = (b ^ memVal2) - l2Val
		c = bits.RotateLeft64(c, int(memVal1%64)) + (a ^ b)

		a ^= bits.RotateLeft64(a, -17)
		b ^= bits.RotateLeft64(b, -23)
		c ^= bits.RotateLeft64(c, -29)

		writeIdx := (a ^ b ^ c) % uint64(spWords)
		writeVal := (a + b) * c
		writeWord(writeIdx, writeVal)

		if iter&127 == 0 && len(data) > 0 {
			blockByte := data[iter%len(data)]
			a ^= uint64(blockByte)
			b ^= bits.RotateLeft64(uint64(blockByte), 8)
			c ^= bits.RotateLeft64(uint64(blockByte), 16)
		}
	}

	finalInput := make([]byte, 0, 24+len(data)+32)
	finalInput = binary.LittleEndian.AppendUint64(finalInput, a)
	finalInput = binary.LittleEndian.AppendUint64(finalInput, b)
	finalInput = binary.LittleEndian.AppendUint64(finalInput, c)
	finalInput = append(finalInput, data...)

	for i := uint64(0); i < 32; i++ {
		idx := (a + i) % uint64(spLen)
		finalInput = append(finalInput, h.scratchpad[idx])
	}

	return sha3.Sum256(finalInput)
}

// SumHex is Sum hex-encoded, the form persisted in Block.Hash.
func (h *Hasher) SumHex(data []byte) string {
	sum := h.Sum(data)
	return hex.EncodeToString(sum[:])
}

// MeetsDifficulty reports whether hashHex has at least difficulty leading
// hex-nibble zeros. hashHex must be valid hex; a decode failure is treated
// as not meeting difficulty, matching the original's unwrap_or_default.
func MeetsDifficulty(hashHex string, difficulty uint32) bool {
	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	for i := uint32(0); i < (difficulty+1)/2; i++ {
		if int(i) >= len(hashBytes) {
			break
		}
		byteVal := hashBytes[i]
		if difficulty > i*2 && byteVal>>4 != 0 {
			return false
		}
		if difficulty > i*2+1 && byteVal&0x0F != 0 {
			return false
		}
	}
	return true
}
