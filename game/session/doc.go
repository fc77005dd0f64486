// Package session keeps Klondike game sessions in memory and on disk.
//
// Manager implements service.SessionManager. Session ids are 4 hex characters,
// generated from crypto/rand, and are matched case-insensitively. Each session owns
// one engine; the manager creates it in the menu state and the service deals.
//
// With a SessionPersistence attached, the manager saves a session whenever it is
// created or touched, and Get falls back to loading from storage, so evicted or
// pre-restart sessions come back on demand. FilePersistence writes one JSON file per
// session holding the preset id and the full engine.State; the rules themselves are
// reloaded from the preset on restore.
//
//	persistence, err := session.NewFilePersistence("sessions", configs)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence, session.WithLogger(logger))
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
package session
