// Package cli implements the ifcheck command-line interface.
//
// Commands are cobra.Command package variables whose RunE delegates to a
// xxxCommand function taking explicit options and writers, so the work can
// be tested without going through cobra.
//
// # Command Structure
//
//	ifcheck diag [hosts...]          - One-shot interface report
//	ifcheck exec --host H -- cmd...  - Run commands as one batch
//	ifcheck watch [hosts...]         - Live link dashboard
//	ifcheck hosts [add]              - List or add hosts
//	ifcheck version                  - Build information
//	ifcheck completion <shell>       - Shell completion script
//
// # Wiring
//
// Every command that touches hosts builds one app from the loaded config:
// a session pool keyed by host name, a batcher, and a diag.Service on top.
// The app owns the pool and must be closed, which shuts the pool down with
// the configured grace period.
//
// # Flag Handling
//
// Global flags (--config, --no-color, --verbose) live on the root command.
// Host selection flags (--tag, --output) are added per command through
// CommonFlags.
package cli
