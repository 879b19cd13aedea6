// Package archive opens extension packages (plain zip or gzip-wrapped zip)
// and installs them into a target directory with a normalized layout.
package archive
