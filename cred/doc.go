// Package cred provides the credentials checker classes a gateway
// configuration can name: pam, file, redis and postgres.
//
// Every checker satisfies swad.CredentialsChecker without importing the
// root package, so the root package never depends on backend drivers.
//
// # What this package must NOT do
//
//   - Log or store plaintext passwords.
//   - Report a backend failure as a rejection; callers decide how to treat errors.
package cred
