// Package platform papers over filesystem differences between Unix and
// Windows: permission bits and replacing files in place.
package platform
