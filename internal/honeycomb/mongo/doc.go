// Package mongo provides a MongoDB-backed honeycomb.Store, grounded on
// the same features/run/mongo Options/Store layering used by
// internal/ra/specstore: an Options-configured client, a single collection,
// and upsert-by-id semantics.
package mongo
