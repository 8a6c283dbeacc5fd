// Package client talks to the GophID server: JSON over HTTP for the identity
// API and the standard gRPC health service for liveness.
//
// A Client keeps the bearer token of the current session in memory only.
package client
