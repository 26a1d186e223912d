// Package specstore provides a MongoDB-backed store for RA SpecDrafts,
// grounded on the teacher's features/run/mongo session-store layering:
// Options-configured client, a narrow Store interface, a single Mongo
// collection with upsert-by-id semantics.
package specstore
