package app

import (
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/config"
	"postpipe-connector/internal/storage"
	"postpipe-connector/internal/storage/memory"

	// Backends register their URI schemes with storage.DefaultRegistry.
	_ "postpipe-connector/internal/storage/mongodb"
	_ "postpipe-connector/internal/storage/postgres"
	_ "postpipe-connector/internal/storage/sqlite"
)

// dialer picks the storage backend. DB_TYPE=memory sends every URI to the
// in-process store; otherwise the URI scheme selects a registered backend.
func (app *App) dialer() storage.Dialer {
	if app.Config.DBType == config.DBTypeMemory {
		app.Logger.Warn("Storage: in-memory, submissions will not survive a restart")
		return memory.Dialer()
	}
	app.Logger.Info("Storage: dialing by URI scheme",
		logging.Field{Key: "schemes", Value: storage.GetAvailableTypes()},
	)
	return storage.DefaultRegistry
}
