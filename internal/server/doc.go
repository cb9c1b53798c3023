// Package server exposes the HTTP surface: the popup-facing session API,
// export/import, the transfer relay endpoints, the agent websocket, and
// the observability endpoints.
package server
