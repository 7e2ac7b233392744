// Package authsdk holds the wire types of the auth service's HTTP API and a
// small typed client for them. The server handlers and the end-to-end tests
// share these definitions so the two cannot drift apart silently.
package authsdk
