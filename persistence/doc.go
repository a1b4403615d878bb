// Package persistence implements the durable layer of the face model store:
// the checksummed binary snapshot format, atomic save-to-file, and the
// compressed backup artifacts with their retention policy.
package persistence
