// Package installer executes an installation plan, sequentially or on a
// fixed pool of workers, and records the outcome in the registry.
package installer
