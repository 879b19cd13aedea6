// Package config manages user-level settings stored at ~/.extsync/config.yaml.
// Every key can be overridden by an EXTSYNC_* environment variable or by the
// matching command-line flag.
package config
