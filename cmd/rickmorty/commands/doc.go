// Package commands defines the rickmorty CLI.
//
// Commands
//
//   - locations   List every location with its resident count
//   - characters  List characters, optionally filtered by status and location
//   - serve       Serve both lists and /metrics over HTTP
//   - version     Print build information
//
// The root command loads configuration and builds the API client (with the
// Redis response cache when enabled) before any subcommand runs.
package commands
