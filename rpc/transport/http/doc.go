// Package http implements the RPC transport over plain HTTP.
//
// Every request is a POST to /{connId} with the serialized message as body.
// The server answers with the serialized response and status 200, transport
// level problems (bad id, unreadable body) use the usual HTTP status codes.
// The same listener serves GET /metrics in the Prometheus text format.
//
// The client spreads requests round robin over all endpoints and retries
// failed requests. An endpoint without scheme is treated as http://.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use once Connect returned.
package http
