package app

import (
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/redis"
	"postpipe-connector/internal/routes"
)

func (app *App) initializeRedis() error {
	if !app.Config.RedisEnabled() {
		app.Logger.Info("Redis: Not configured (per-tenant routing store disabled)")
		return nil
	}

	client, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDBNumber(),
	})
	if err != nil {
		return err
	}

	app.RedisClient = client
	app.RouteStore = routes.NewRedisStore(client)
	app.Logger.Info("Redis: Connected", logging.Field{Key: "address", Value: app.Config.RedisAddress})

	if app.Config.ConnectorID == "" {
		app.Logger.Warn("POSTPIPE_CONNECTOR_ID is not set, per-tenant routing config will not be read")
	}
	return nil
}
