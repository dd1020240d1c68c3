package main

import (
	"database/sql"
	"fmt"

	"github.com/snr-automations/teamdash/internal/bootstrap"
)

// connectDB opens Postgres for commands that need it. The admin tool never touches Redis.
func connectDB(cmdCtx *commandContext) (*sql.DB, func(), error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cmdCtx.Config.Postgres, Logger: cmdCtx.Logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	closeFn := func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}
	return db, closeFn, nil
}
