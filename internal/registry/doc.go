// Package registry reads and writes the installed-extensions registry file
// (extensions.json). Entries keep every field they were loaded with, the file
// is backed up before its first rewrite, and writes go through a temp file and
// rename so a crash never leaves a truncated registry.
package registry
