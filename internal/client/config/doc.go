// Package config provides configuration loading for the GophID CLI.
//
// Sources, in increasing precedence:
//   - built-in defaults (LoadDefaults)
//   - an optional JSON file passed with -c / -config
//   - command-line flags (-a, -g, -t)
//
// Durations in JSON accept strings such as "5s" or integer nanoseconds
// (see timex.Duration).
package config
