// Package broadcast fans stored readings out to subscriber sessions.
//
// Each record is serialized once and sent to the subscriber snapshot taken
// at call time. Sends run concurrently with a per-recipient deadline; a failed
// send is logged and counted but never removes the subscriber.
package broadcast
