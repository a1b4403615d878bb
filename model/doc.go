// Package model defines the shared data types of the face model lifecycle:
// the fixed embedding dimension, identity tokens, and the Snapshot type that
// every other package (store, refresh, enroll, recognize) operates on.
package model
