// Package identity provides the authentication and credential-lifecycle
// core of a feedback-collection platform: polymorphic registration of
// persons and organizations, Argon2id password hashing, JWT bearer tokens,
// TOTP two-factor verification with single-use backup codes, and time-boxed
// password resets.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// identity is the public surface. It exposes [Engine], [Builder], [Config],
// the store contracts ([UserStore], [ResetTokenStore]), and value types.
// SQL persistence lives in the store sub-package; token signing in token;
// password hashing in password. Redis-backed attempt throttling lives under
// internal/ and is reachable only through [Builder.WithRedis].
//
// # What this package must NOT do
//
//   - Expose password hashes or TOTP secrets through [Profile].
//   - Perform I/O during construction; [Builder.Build] is allocation-only.
//   - Keep plaintext backup codes anywhere past the [TwoFactorSetup] return.
//
// # Token contract
//
// There is no revocation list. A signed token is valid until its natural
// expiry and logout is a client-side discard. Verification failures are
// always one of token.ErrMalformed, token.ErrBadSignature, or
// token.ErrExpired so transports can answer precisely.
package identity
