// Package fingerprint computes and encodes content fingerprints: fixed-size
// cryptographic digests of a file's bytes tagged with the algorithm that
// produced them.
package fingerprint

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Size is the length of a digest in bytes.
const Size = blake2b.Size

// readBufferSize is the size of the buffered reader wrapped around the file.
// Hash updates still happen one block at a time.
const readBufferSize = 64 * 1024

// Algorithm identifies the hash function behind a Fingerprint.
type Algorithm uint8

// Supported algorithms.
const (
	Blake2b512 Algorithm = iota + 1
)

// String returns the tag used in the textual form.
func (a Algorithm) String() string {
	switch a {
	case Blake2b512:
		return "blake2b"
	default:
		return "unknown"
	}
}

// ErrMalformed is returned when a textual fingerprint cannot be parsed.
var ErrMalformed = errors.New("malformed fingerprint")

// Fingerprint is an immutable tagged digest. The zero value is not a valid
// fingerprint and reports IsZero.
type Fingerprint struct {
	alg Algorithm
	sum [Size]byte
}

// New builds a fingerprint from raw digest bytes.
func New(alg Algorithm, sum [Size]byte) Fingerprint {
	return Fingerprint{alg: alg, sum: sum}
}

// Algorithm returns the algorithm that produced the digest.
func (f Fingerprint) Algorithm() Algorithm {
	return f.alg
}

// Sum returns a copy of the digest bytes.
func (f Fingerprint) Sum() [Size]byte {
	return f.sum
}

// IsZero reports whether f is the zero value.
func (f Fingerprint) IsZero() bool {
	return f.alg == 0
}

// Equal reports whether two fingerprints carry the same algorithm and bytes.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f == other
}

// String returns the textual form "<tag>:<UPPERCASE HEX>".
func (f Fingerprint) String() string {
	return f.alg.String() + ":" + strings.ToUpper(hex.EncodeToString(f.sum[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	if f.IsZero() {
		return nil, fmt.Errorf("%w: zero value", ErrMalformed)
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Parse decodes the textual form produced by String. The tag must be exactly
// "blake2b" and the digest exactly 128 hexadecimal digits of either case.
func Parse(s string) (Fingerprint, error) {
	tag, digits, ok := strings.Cut(s, ":")
	if !ok {
		return Fingerprint{}, fmt.Errorf("%w: missing algorithm tag in %q", ErrMalformed, s)
	}
	if tag != Blake2b512.String() {
		return Fingerprint{}, fmt.Errorf("%w: unknown algorithm %q", ErrMalformed, tag)
	}
	if len(digits) != hex.EncodedLen(Size) {
		return Fingerprint{}, fmt.Errorf("%w: want %d hex digits, got %d", ErrMalformed, hex.EncodedLen(Size), len(digits))
	}

	var sum [Size]byte
	if _, err := hex.Decode(sum[:], []byte(digits)); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return New(Blake2b512, sum), nil
}

// Compute hashes the file at path. Errors keep their fs.ErrNotExist identity
// so callers can tell a vanished file from a failing device.
func Compute(path string) (Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer file.Close()

	adviseSequential(file)
	defer adviseDone(file)

	fp, err := ComputeReader(file)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return fp, nil
}

// ComputeReader hashes everything read from r, one hash block per update.
func ComputeReader(r io.Reader) (Fingerprint, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return Fingerprint{}, err
	}

	reader := bufio.NewReaderSize(r, readBufferSize)
	buf := make([]byte, blake2b.BlockSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Fingerprint{}, err
		}
	}

	var sum [Size]byte
	copy(sum[:], h.Sum(nil))
	return New(Blake2b512, sum), nil
}
