// Package service is the business layer between the transports (HTTP, WebSocket,
// MCP) and the Klondike engine.
//
// GameService parses card and pile notation, routes each request to the engine of
// the right session, persists the session afterwards and reports what happened as
// an ActionResult with typed events. A move the rules reject is not an error; the
// result carries Success false and the unchanged state.
//
// SessionManager and ConfigManager are implemented by the session and config
// packages and can be replaced with mocks in tests.
//
//	configs, _ := config.NewManager("configs")
//	sessions := session.NewManager()
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "classic"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := svc.Move(ctx, info.ID, service.MoveRequest{Card: "AH", From: "waste", To: "foundation-hearts"})
//
// RunAutoSolve plays out a game that has entered the auto-solving phase in real
// time, one foundation move per rules interval, and reports each move to a callback.
package service
