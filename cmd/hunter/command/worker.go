package command

import (
	"fmt"

	service "github.com/pixil98/go-service"

	"gridhunter/internal/announce"
	"gridhunter/internal/driver"
	"gridhunter/internal/game"
	"gridhunter/internal/listener"
	"gridhunter/internal/messaging"
	"gridhunter/internal/player"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Broadcast layer
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	publisher := messaging.NewPublisher(natsServer)

	announcer, err := announce.NewAnnouncer(cfg.Announcements)
	if err != nil {
		return nil, fmt.Errorf("creating announcer: %w", err)
	}

	// Persistence
	store, err := cfg.Storage.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	// Game state
	world, err := cfg.World.BuildWorld(store, publisher, announcer)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}

	// Client sessions and listeners
	playerManager := player.NewManager(world, natsServer, announcer)
	connManager := listener.NewConnectionManager(playerManager)

	// Tick driver: lifecycle tasks and the autosaver
	gameDriver := driver.NewGameDriver(
		[]driver.Manager{
			world,
			game.NewAutosaver(world, cfg.autosaveInterval()),
		},
		driver.WithTickLength(cfg.tickInterval()),
	)

	return service.WorkerList{
		"nats":      natsServer,
		"driver":    gameDriver,
		"websocket": cfg.Listener.BuildListener(connManager),
		"admin":     cfg.Admin.BuildListener(world),
	}, nil
}
