// Package api exposes the Klondike game service over REST, using gorilla/mux.
//
// Routes:
//
//	POST   /api/sessions                    create a session and deal {config_id, draw_mode, seed}
//	GET    /api/sessions                    list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//	GET    /api/sessions/{id}               session info with full state
//	DELETE /api/sessions/{id}               delete a session
//
//	GET    /api/sessions/{id}/state         full engine state
//	GET    /api/sessions/{id}/snapshot      per-pile summary for renderers
//	GET    /api/sessions/{id}/hints         legal actions
//	GET    /api/sessions/{id}/history       action log (?page&limit&order)
//
//	POST   /api/sessions/{id}/deal          new deal {draw_mode, seed}
//	POST   /api/sessions/{id}/move          {card, from, to}, e.g. {"card":"QH","from":"tableau-2","to":"tableau-5"}
//	POST   /api/sessions/{id}/auto-move     send a card to its foundation {card, from}
//	POST   /api/sessions/{id}/draw          turn cards from the stock
//	POST   /api/sessions/{id}/reset-deck    recycle the waste
//	POST   /api/sessions/{id}/undo          revert the last action
//	POST   /api/sessions/{id}/drag          {dragging}; undo is ignored mid-drag
//	POST   /api/sessions/{id}/tick          {elapsed_ms}; client-driven auto-solve clock
//	POST   /api/sessions/{id}/auto-solve    run the solver server-side (?wait=true blocks)
//
//	GET    /api/configs                     list rule presets
//	POST   /api/configs                     save a preset (?id= overrides the derived id)
//	GET    /api/configs/{name}              one preset
//
//	GET    /health
//	GET    /ws?session={id}                 live updates, see package websocket
//
// Rejected moves are answered with 200 and "success": false. Errors are
// {"error": "..."} with 404 for unknown sessions or presets, 400 for bad notation or
// preset content, and 409 when a solver is already running for the session.
package api
