// Package plan decides what a sync does with each source package and renders
// that decision for review.
package plan
