// Package model declares the FlowX entities exchanged with the backend and the
// request payloads the services send.
//
// Request payloads carry a Validate method that performs shallow checks only:
// required fields and enumeration membership. Anything deeper is the backend's
// responsibility.
package model
