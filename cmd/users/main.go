package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AlibekovAA/defis-users/internal/common/bootstrap"
	srv "github.com/AlibekovAA/defis-users/internal/common/server"
)

func main() {
	app, err := bootstrap.NewUsersApp(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start users service: %v\n", err)
		os.Exit(1)
	}
	log := app.Log

	serverConfig := srv.DefaultServerConfig(app.Config.HTTPPort, app.Config.RequestTimeout)
	server := srv.NewServer(serverConfig, app.Handler())

	shutdownHooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("users service: releasing storage and limiters")
			return app.Close()
		},
	}

	if err := srv.StartWithGracefulShutdownAndHooks(server, log, "users", shutdownHooks); err != nil {
		log.Errorf("%v", err)
		_ = app.Close()
		os.Exit(1)
	}
}
