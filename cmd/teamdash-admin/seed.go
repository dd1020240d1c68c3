package main

import (
	"context"
	"errors"
	"time"

	"github.com/snr-automations/teamdash/config"
	"github.com/snr-automations/teamdash/internal/devseed"
)

var errSeedMode = errors.New("seed requires AUTH_MODE=mock")

func runSeed(cmdCtx *commandContext, _ []string) error {
	if cmdCtx.Config.Auth.Mode != config.AuthModeMock {
		return errSeedMode
	}

	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()
	return devseed.Run(ctx, devseed.NewServices(db), cmdCtx.Config.Auth.DevAuth.Users, cmdCtx.Logger)
}
