// Package source builds the inventory of package archives available for
// synchronization.
package source
