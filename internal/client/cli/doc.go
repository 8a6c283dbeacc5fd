// Package cli provides the interactive GophID command-line client.
//
// It wires configuration and the API client into a small REPL:
//   - signup / signin: prompt for details and start a session
//   - me: show the profile of the signed-in user
//   - status: query the server's gRPC health endpoint
//   - logout, help, exit
//
// The session token lives in memory and is lost when the program exits.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
