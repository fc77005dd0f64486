// Package websocket pushes live game updates to browsers watching a session.
//
// Clients connect to /ws?session=<id> and only receive; moves go through the REST
// or MCP surfaces. Every message is a JSON Message:
//
//	{"session_id": "a3f9", "event": "state_update", "game_state": {...}}
//	{"session_id": "a3f9", "event": "auto_solve_move", "game_state": {...}, "data": {"card": "QH", "from": "tableau-2", "to": "foundation-hearts"}}
//	{"session_id": "a3f9", "event": "won", "game_state": {...}}
//
// A single Hub goroutine owns the client sets. Broadcasts are encoded by the caller,
// queued without blocking, and fanned out by Run; a client whose buffer is full is
// dropped. Each connection has a read pump for control frames and a write pump that
// sends pings every pingPeriod.
package websocket
