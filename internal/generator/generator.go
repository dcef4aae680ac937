package generator

import (
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is base62 without the characters that are easy to misread
// (i, l, 1, L, o, 0, O).
const Alphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHIJKMNPQRSTUVWXYZ23456789"

// MaxCodeLength is the ceiling accepted by IsValidCode.
const MaxCodeLength = 50

// Generator produces short codes from the restricted alphabet. It holds no
// mutable state and is safe for concurrent use; uniqueness is enforced by
// the record store, not here.
type Generator struct {
	length int
}

// New creates a generator producing codes of the given length.
func New(length int) *Generator {
	return &Generator{length: length}
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a random code of the configured length drawn from
// Alphabet using crypto/rand, so codes are not enumerable.
func (g *Generator) Generate() (string, error) {
	return g.GenerateWithLength(g.length)
}

// GenerateWithLength returns a random code of an explicit length. Used when
// the allocation loop escalates the code length after repeated collisions.
func (g *Generator) GenerateWithLength(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	max := big.NewInt(int64(len(Alphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		sb.WriteByte(Alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// FromURL derives a code from the URL content (md5, base62-encoded). The
// mapping is deterministic and idempotent but NOT unique; callers must not
// rely on it for collision avoidance.
func (g *Generator) FromURL(url string) string {
	sum := md5.Sum([]byte(url))
	var n big.Int
	n.SetBytes(sum[:])
	encoded := encodeBig(&n)
	if len(encoded) > g.length {
		return encoded[:g.length]
	}
	return encoded
}

// IsValidCode reports whether code is non-empty, within the length ceiling,
// and made up entirely of Alphabet characters.
func IsValidCode(code string) bool {
	if code == "" || len(code) > MaxCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

func encodeBig(n *big.Int) string {
	base := big.NewInt(int64(len(Alphabet)))
	if n.Sign() == 0 {
		return string(Alphabet[0])
	}
	var digits []byte
	mod := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, Alphabet[mod.Int64()])
	}
	// digits are little-endian
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
