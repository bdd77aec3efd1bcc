package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"gridhunter/internal/announce"
)

const (
	defaultTickInterval     = time.Second
	defaultAutosaveInterval = 30 * time.Second
)

type Config struct {
	TickInterval     string          `json:"tick_interval"`
	AutosaveInterval string          `json:"autosave_interval"`
	Listener         ListenerConfig  `json:"listener"`
	Admin            AdminConfig     `json:"admin"`
	Nats             NatsConfig      `json:"nats"`
	Storage          StorageConfig   `json:"storage"`
	World            WorldConfig     `json:"world"`
	Announcements    announce.Config `json:"announcements"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < 100*time.Millisecond {
			el.Add(fmt.Errorf("tick_interval must be at least 100ms"))
		}
	}

	if c.AutosaveInterval != "" {
		d, err := time.ParseDuration(c.AutosaveInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing autosave_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("autosave_interval must be at least 1 second"))
		}
	}

	el.Add(c.Listener.validate())
	el.Add(c.Admin.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Storage.validate())
	el.Add(c.World.validate())
	el.Add(c.Announcements.Validate())

	return el.Err()
}

func (c *Config) tickInterval() time.Duration {
	if c.TickInterval == "" {
		return defaultTickInterval
	}
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return defaultTickInterval
	}
	return d
}

func (c *Config) autosaveInterval() time.Duration {
	if c.AutosaveInterval == "" {
		return defaultAutosaveInterval
	}
	d, err := time.ParseDuration(c.AutosaveInterval)
	if err != nil {
		return defaultAutosaveInterval
	}
	return d
}
