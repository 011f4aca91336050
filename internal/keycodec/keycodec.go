package keycodec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// SecretLength is the number of characters in a canonical key.
	SecretLength = 32

	// entropyBytes gives 160 bits, which base32 renders as exactly SecretLength characters.
	entropyBytes = 20
	groupSize    = 4

	alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// Key is a freshly generated license key. It only exists in memory between
// generation and the response that hands it to the caller.
type Key struct {
	Secret string
}

// Display returns the grouped form shown to users, e.g. ABCD-EFGH-....
func (k Key) Display() string {
	var b strings.Builder
	for i := 0; i < len(k.Secret); i += groupSize {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + groupSize
		if end > len(k.Secret) {
			end = len(k.Secret)
		}
		b.WriteString(k.Secret[i:end])
	}
	return b.String()
}

// String masks the secret so a Key never leaks through %v formatting.
func (k Key) String() string {
	return Mask(k.Secret)
}

// Codec fingerprints keys. The pepper is a server-side secret mixed into every
// fingerprint; an empty pepper falls back to plain SHA-256.
type Codec struct {
	pepper []byte
}

func New(pepper string) *Codec {
	return &Codec{pepper: []byte(pepper)}
}

// Generate creates a new random key.
func (c *Codec) Generate() (Key, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return Key{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return Key{Secret: encoding.EncodeToString(buf)}, nil
}

// Fingerprint returns the hex digest stored in place of the secret.
// The input must already be normalized.
func (c *Codec) Fingerprint(secret string) string {
	if len(c.pepper) == 0 {
		sum := sha256.Sum256([]byte(secret))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, c.pepper)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize converts a presented key into canonical form. It accepts the
// grouped display form, lower case, and the usual look-alike characters.
// The second return is false when the result is not a well-formed key.
func Normalize(presented string) (string, bool) {
	var b strings.Builder
	b.Grow(SecretLength)
	for _, r := range strings.ToUpper(strings.TrimSpace(presented)) {
		switch r {
		case '-', ' ':
			continue
		case 'O':
			r = '0'
		case 'I', 'L':
			r = '1'
		}
		b.WriteRune(r)
	}
	s := b.String()
	return s, ValidFormat(s)
}

// ValidFormat reports whether s is a canonical key.
func ValidFormat(s string) bool {
	if len(s) != SecretLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// Mask keeps the first and last four characters for log lines.
func Mask(s string) string {
	if len(s) <= 2*groupSize {
		return strings.Repeat("*", len(s))
	}
	return s[:groupSize] + strings.Repeat("*", len(s)-2*groupSize) + s[len(s)-groupSize:]
}
