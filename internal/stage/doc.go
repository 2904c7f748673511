// Package stage defines the core stage domain: stage names, the identities
// that hold them, and the per-identity record of unlocked stages.
package stage
