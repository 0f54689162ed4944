// Package password implements credential hashing and verification.
//
// New hashes use Argon2id encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// A bcrypt fallback is available for deployments where the Argon2id
// memory cost is not acceptable. Verification dispatches on the hash
// prefix, so either scheme verifies hashes produced by the other
// configuration.
//
// This package owns hashing and strength checks only; lockout and
// account policy are enforced by the engine.
package password
