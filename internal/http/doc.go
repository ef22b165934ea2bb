// Package http provides HTTP handlers and middleware for the court booking API.
//
// Every JSON response is an envelope {"success", "data"|"booking", "message",
// "error", "error_code", "errors"}. Sessions are opaque tokens read from the
// X-Session-Token header, an Authorization bearer header or the session_token
// cookie.
//
//   - POST /register {passportId,name,password}; 409 on a duplicate passport id.
//   - POST /sessions {passportId,password} issues a token; DELETE /sessions/current revokes it.
//   - GET /me, POST /face-registration {imageData}.
//   - GET /courts, GET /slots, GET /availability?date=YYYY-MM-DD.
//   - GET|POST /bookings, GET /bookings/{id}, POST /bookings/{id}/cancel.
//   - Administrators only: PUT|DELETE /bookings/{id}, POST /bookings/{id}/approve,
//     /reject and /complete, GET /admin/stats, GET /admin/reports(.csv)?days=N,
//     GET /admin/users, POST /admin/users/{passportId}/admin.
//
// Status codes: 400 validation, 401 unauthenticated, 403 forbidden, 404 not
// found, 409 conflict, 500 for anything else with a generic message.
package http
