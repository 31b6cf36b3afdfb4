// Package api is the HTTP client the FlowX services are built on.
//
// Every backend response is wrapped in an envelope:
//
//	{"code": 200, "message": "ok", "data": {...}}
//
// A call succeeds only when code is 200 or 201. Failures are returned as
// *errors.Error values from github.com/goliatone/go-errors so callers can branch
// on the category:
//
//   - CategoryAuth: no access token was available; no request was sent
//   - CategoryExternal: the backend rejected the call or the transport failed
//   - CategoryValidation: the payload failed its shallow Validate check
//
// Generic helpers (Get, Post, Put, Delete) decode the envelope data into the
// requested type:
//
//	members, err := api.Get[[]model.ProjectMember](ctx, client, "/api/project-member/get-by-project/5", nil)
package api
