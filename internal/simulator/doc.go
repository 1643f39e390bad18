// Package simulator replays patient monitor recordings from CSV files over
// WebSocket, acting as one bedside producer per file.
package simulator
