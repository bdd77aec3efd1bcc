package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"gridhunter/internal/announce"
	"gridhunter/internal/game"
)

type MovementPolicy int

const (
	MovementOrthogonal MovementPolicy = iota
	MovementEightWay
)

func (mp *MovementPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "orthogonal":
		*mp = MovementOrthogonal
	case "eight_way":
		*mp = MovementEightWay
	default:
		return fmt.Errorf("unknown movement policy: %s", text)
	}
	return nil
}

type WorldConfig struct {
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	ResourceDensity float64        `json:"resource_density"`
	ObstacleDensity float64        `json:"obstacle_density"`
	DiscoveryRadius int            `json:"discovery_radius"`
	Movement        MovementPolicy `json:"movement"`
	AnnounceDelay   string         `json:"announce_delay"`
	RestoreDelay    string         `json:"restore_delay"`
}

func (c *WorldConfig) validate() error {
	el := errors.NewErrorList()

	if c.Width <= 0 || c.Height <= 0 {
		el.Add(fmt.Errorf("world dimensions must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.ResourceDensity < 0 || c.ResourceDensity > 1 {
		el.Add(fmt.Errorf("resource_density must be in [0,1], got %g", c.ResourceDensity))
	}
	if c.ObstacleDensity < 0 || c.ObstacleDensity > 1 {
		el.Add(fmt.Errorf("obstacle_density must be in [0,1], got %g", c.ObstacleDensity))
	}
	if c.DiscoveryRadius < 0 || c.DiscoveryRadius > 5 {
		el.Add(fmt.Errorf("discovery_radius must be between 0 and 5, got %d", c.DiscoveryRadius))
	}

	for name, raw := range map[string]string{
		"announce_delay": c.AnnounceDelay,
		"restore_delay":  c.RestoreDelay,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", name, err))
		}
	}

	return el.Err()
}

func (c *WorldConfig) BuildWorld(store game.Store, pub game.Publisher, ann *announce.Announcer) (*game.World, error) {
	cfg := game.Config{
		Width:           c.Width,
		Height:          c.Height,
		ResourceDensity: c.ResourceDensity,
		ObstacleDensity: c.ObstacleDensity,
		DiscoveryRadius: c.DiscoveryRadius,
		AllowDiagonal:   c.Movement == MovementEightWay,
	}

	if c.AnnounceDelay != "" {
		d, err := time.ParseDuration(c.AnnounceDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing announce_delay: %w", err)
		}
		cfg.AnnounceDelay = d
	}
	if c.RestoreDelay != "" {
		d, err := time.ParseDuration(c.RestoreDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing restore_delay: %w", err)
		}
		cfg.RestoreDelay = d
	}

	return game.NewWorld(cfg, store, pub, ann)
}
