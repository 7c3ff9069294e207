// Package api exposes the dubbing pipeline and voice cloning over HTTP.
//
// Routes mirror the browser client: multipart uploads under /dubbing and
// /voice-clone, JSON responses shaped as {success, ...}, and finished videos
// served from /temp. Callers are grouped into sessions by the X-Session-ID
// header or a session cookie; cloned voices and "download last result" are
// scoped to the session.
package api
