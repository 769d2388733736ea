// Package password implements argon2id hashing for the file, redis and
// postgres credentials checkers and the hash command.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash are unpadded base64; padded input is accepted on parse.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other swad package.
//   - Log plaintext passwords.
package password
