// Package session tracks live WebSocket sessions.
//
// A Classifier assigns each connection a Role from its handshake identity.
// The Registry holds every live session keyed by id, with role-indexed views
// that are published as immutable snapshots. The Reaper closes sessions that
// stopped answering.
package session
