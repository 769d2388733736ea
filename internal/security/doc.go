// Package security derives a posture report from gateway configuration
// values. It takes plain values so the root package can feed it without an
// import cycle.
package security
