// Package domain defines the core domain types and interfaces.
//
// Vital-sign records, their status values, the persistence contract and the
// typed errors raised along the ingest and broadcast path live here. No
// implementation code, just contracts shared by the adapters.
package domain
