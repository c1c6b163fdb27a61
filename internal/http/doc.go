// Package http provides HTTP handlers and middleware for the planner API.
//
// The router exposes the following endpoints:
//   - POST /sessions: creates a scheduled session; a weekly recurrence rule is
//     expanded into independent rows at creation time. Body: the
//     `createSessionRequest` payload defined in session_handler.go.
//   - GET /sessions: lists the owner's sessions in chronological order with
//     optional `from`, `to` (wall-clock text) and `status` filters.
//   - PATCH /sessions/{id}: partial edit of title, description, scheduled
//     time, estimated duration and tags. Status is never touched.
//   - DELETE /sessions/{id}: cancels one session. Rows materialized from the
//     same recurrence rule are untouched.
//   - POST /sessions/{id}/complete: links a tracking session and marks the
//     row completed; repeating the call is a no-op success.
//   - POST /sessions/{id}/notified: stamps the day-before reminder guard.
//   - GET /notifications/upcoming: evaluates the reminder windows for the
//     owner, optionally at the wall-clock instant given by `?at=`.
//
// The owner is resolved from a configurable request header by the
// ResolveOwner middleware; identity verification lives outside this service.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
