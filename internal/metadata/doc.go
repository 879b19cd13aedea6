// Package metadata derives a package identity from an archive's embedded
// descriptors or, failing that, from its file name.
package metadata
