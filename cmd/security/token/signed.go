package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// ErrorQueryKey is the query parameter carrying a signed message.
const ErrorQueryKey = "error"

// EncodeErrorQuery returns the canonical bytes that get signed: "error=<percent-encoded msg>".
// Spaces are "%20", never "+". Sign and verify both go through here so the
// encodings cannot drift.
func EncodeErrorQuery(msg string) string {
	return ErrorQueryKey + "=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// SignMessage returns the hex tag for msg.
func SignMessage(msg string, key []byte) string {
	return HashHMACSHA256Hex(EncodeErrorQuery(msg), key)
}

// VerifyMessage returns msg when tagHex is its valid signature under key.
// Any malformed or mismatched tag yields ErrInvalidSignature.
func VerifyMessage(msg, tagHex string, key []byte) (string, error) {
	tag, err := hex.DecodeString(tagHex)
	if err != nil || len(tag) != sha256.Size {
		return "", ErrInvalidSignature
	}

	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(EncodeErrorQuery(msg)))
	if !hmac.Equal(m.Sum(nil), tag) {
		return "", ErrInvalidSignature
	}
	return msg, nil
}
