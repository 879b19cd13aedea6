// Package version compares the loosely formatted version strings found in
// package filenames and manifests. It is deliberately more tolerant than
// semantic versioning: any printable token is a valid version, and numeric
// segments compare by value so "1.10.0" sorts after "1.9.0".
package version
