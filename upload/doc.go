// Package upload moves files between the caller and object storage using
// presigned URLs handed out by the FlowX backend.
//
// Each file walks its own state machine:
//
//	pending -> requesting-url -> uploading -> done
//	                  \               \
//	                   `-> failed      `-> failed
//
// Files of one batch upload concurrently and independently: one failure does
// not cancel its siblings, and completed uploads are never rolled back.
package upload
