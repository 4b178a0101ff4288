// Package ws implements the live-update WebSocket hub of benchboard-server.
//
// New(store, interval, summary) subscribes to the store's append events.
// Hub.Run(ctx) relays each append to all clients and sends a summary every
// interval; it blocks until ctx is cancelled, then closes all connections.
// Hub.ServeHTTP upgrades a request, sends a summary immediately, then
// streams updates.
//
// Message format sent to clients:
//
//	{"event": "summary", "data": { /* api.SummaryResponse */ }}
//	{"event": "entry",   "data": {"suite": "...", "entry": {...}, "baseline": "...", "changes": [...]}}
//
// The upgrader accepts all origins. The server mounts the hub at /ws/stream.
package ws
