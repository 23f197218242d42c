// Package password provides password hashing and verification utilities.
//
// It implements Argon2id hashing using a PHC-like encoded string format and includes:
// - Configurable Argon2id parameters (via NEWSLETTER_ environment variables)
// - Password policy validation for credential provisioning
// - Strict hash decoding and verification with anti-DoS bounds
// - Pool, a bounded worker budget for the CPU-heavy verify step
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
package password
