// Package app provides the application service layer.
//
// Orchestrates the REST use cases: historical queries, statistics, patient
// deletion and HTTP submission of readings. Sits between HTTP handlers and the
// record store and ingest pipeline. Depends on domain interfaces, not concrete
// implementations.
package app
