// Package design holds the in-memory mirror of a design-unit hierarchy: an
// arena of nodes addressed by NodeID, built once per exported part and
// discarded after the run.
package design
