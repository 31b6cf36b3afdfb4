// Package store provides the entity-cache stores a FlowX session reads and
// writes through.
//
// Each store owns a slice of the shared cache service: a primary entry per
// record id and secondary index lists keyed by foreign key (members by
// project, tasks by assignee and so on). Reads are served from cache unless
// forced; writes go to the backend first and then patch or invalidate the
// cached entries they touch:
//
//   - create stores the new record and drops the index lists it belongs to
//   - update patches the record in place in every cached list holding it
//   - remove filters the record out of every cached list
//   - bulk operations clear the whole store
//
// Concurrent reads of the same key share one request, and every response is
// fenced by a per-key ticket so an older response can never overwrite a newer
// one.
//
// Failure policy: reads return empty results and record the error for Err;
// single-entity writes return nil or false; the E-suffixed and multi-step
// variants (CreateE, AddMany, DeleteE) return the error to the caller.
package store
