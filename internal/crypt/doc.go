// Package crypt encrypts and decrypts backup artifacts with a
// password-derived key.
//
// The on-disk format is [salt:16][iv:16][ciphertext]. The AES-256 key is
// derived with PBKDF2-SHA256 (100,000 iterations) from the password and
// the per-file random salt, so the same password never yields the same
// key twice and nothing secret is persisted. The cipher is AES-256-CBC
// with PKCS7 padding. Files are processed in fixed-size chunks, so memory
// use stays flat for arbitrarily large backups.
package crypt
