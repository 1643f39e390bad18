// Package ingest turns producer frames into stored, broadcast records.
//
// Each frame is decoded and validated, stamped with the server receive time,
// appended to the record store and then handed to every configured publisher.
// Failures are logged and returned; they never end the producer's session.
package ingest
