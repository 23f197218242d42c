// Package token provides the random and keyed primitives of the service.
//
// It covers two concerns:
//   - Confirmation tokens: 25-char alphanumeric strings from crypto/rand.
//   - Signed redirect messages: HMAC-SHA256 over the exact query encoding
//     ("error=<escaped message>"), hex-encoded for transport in a URL.
//
// Environment:
//   - NEWSLETTER_HMAC_SECRET: signing key for redirect messages.
//
// Policy:
//   - When the secret is required, callers MUST enforce a minimum key size
//     (>= 32 bytes) via KeyFromEnv.
package token
