// Package manifest models the descriptors that ship inside an extension
// package: the package.json extension descriptor and the extension.vsixmanifest
// identity document. It parses both, synthesizes them when a package lacks
// them, and validates or rewrites the editor engine range.
package manifest
