// Package api serves the question answering pipeline over HTTP.
//
//	POST   /v1/ask                  {"question", "history", "debug", "language"}
//	POST   /v1/sessions             creates a session id
//	GET    /v1/sessions/{id}        remembered turns
//	POST   /v1/sessions/{id}/ask    {"question", "debug", "language"}
//	DELETE /v1/sessions/{id}        forgets the session
//	GET    /v1/prompts              prompt template versions
//	GET    /healthz
//	GET    /metrics                 when a Prometheus gatherer is configured
//
// Failures are answered with {"error": <message>, "kind": <kind>}. Invalid
// input and prompt injection are 400, an unavailable upstream is 503.
package api
