// Package password implements Argon2id hashing with PHC-formatted
// encoded hashes. Verification is constant-time and parameter-aware,
// so hashes produced under older cost settings still verify and can be
// flagged for rehashing.
package password
