// Package keys provides the signing side of authenticators and ledger
// certificates: Ed25519 and Dilithium3 signers plus deterministic seed
// derivation.
//
// Verification lives in package proof; this package is only needed by parties
// that produce signatures (wallet tooling, the reference ledger, tests).
package keys
