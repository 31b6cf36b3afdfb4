// Package persist stores encoded store snapshots so a session can restore its
// cache after a restart. MemoryStore keeps them in process; BunStore writes
// them to a sqlite or postgres table through go-repository-bun.
package persist
