package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// phcPrefix opens every hash this package writes:
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt>$<key>
const phcPrefix = "$argon2id$v=19$"

var b64 = base64.RawStdEncoding

// phc is a decoded Argon2id hash string.
type phc struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (h phc) String() string {
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		phcPrefix,
		h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key),
	)
}

// Hash checks password against the policy and returns its encoded Argon2id hash.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	return c.hash(password)
}

// DummyHash returns a hash of a random secret using c's parameters.
// Verifying against it costs the same as verifying a real credential, which
// keeps unknown-username rejections indistinguishable by latency.
func (c Config) DummyHash() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("dummy secret: %w", err)
	}
	return c.hash(b64.EncodeToString(secret))
}

func (c Config) hash(password string) (string, error) {
	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	h := phc{params: c.Params, salt: salt}
	h.key = derive(password, h.params, salt, c.Params.KeyLength)
	return h.String(), nil
}

func derive(password string, p Argon2idParams, salt []byte, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, keyLen)
}

// Verify reports whether password matches encodedHash.
// A malformed hash, or one whose cost exceeds twice c's parameters, yields
// ErrInvalidHash; stored hashes are untrusted input.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	if !c.affordable(h.params) {
		return false, ErrInvalidHash
	}

	got := derive(password, h.params, h.salt, h.params.KeyLength)
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// affordable accepts hashes made with older, cheaper settings.
func (c Config) affordable(p Argon2idParams) bool {
	return p.MemoryKiB <= c.Params.MemoryKiB*2 &&
		p.Iterations <= c.Params.Iterations*2 &&
		uint32(p.Parallelism) <= uint32(c.Params.Parallelism)*2 &&
		p.SaltLength >= 8 && p.SaltLength <= 64 &&
		p.KeyLength >= 16 && p.KeyLength <= 128
}

func parsePHC(s string) (phc, error) {
	rest, ok := strings.CutPrefix(s, phcPrefix)
	if !ok {
		return phc{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return phc{}, ErrInvalidHash
	}

	var h phc
	seen := 0
	for _, kv := range strings.Split(fields[0], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return phc{}, ErrInvalidHash
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return phc{}, ErrInvalidHash
		}
		switch {
		case name == "m" && seen == 0:
			h.params.MemoryKiB = uint32(v)
		case name == "t" && seen == 1:
			h.params.Iterations = uint32(v)
		case name == "p" && seen == 2 && v <= 255:
			h.params.Parallelism = uint8(v)
		default:
			return phc{}, ErrInvalidHash
		}
		seen++
	}
	if seen != 3 {
		return phc{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[1]); err != nil {
		return phc{}, ErrInvalidHash
	}
	if h.key, err = b64.DecodeString(fields[2]); err != nil {
		return phc{}, ErrInvalidHash
	}
	h.params.SaltLength = uint32(len(h.salt)) // #nosec G115 -- bounded by the input string length.
	h.params.KeyLength = uint32(len(h.key))   // #nosec G115 -- bounded by the input string length.
	return h, nil
}
