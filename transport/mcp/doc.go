// Package mcp exposes Klondike to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the REST
// API (package api), and the JSON answer is rendered as plain text. Face-down cards
// are shown as ## and only the top three waste cards are listed.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, hints, move_history
//   - new_deal, move, auto_move, draw, reset_deck, undo
//   - auto_solve: runs the solver server-side and waits for it
//   - list_configs, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
