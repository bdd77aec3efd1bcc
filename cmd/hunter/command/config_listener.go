package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"gridhunter/internal/game"
	"gridhunter/internal/listener"
)

type ListenerConfig struct {
	Port uint16 `json:"port"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("listener port must be set to a positive integer"))
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) *listener.WebsocketListener {
	return listener.NewWebsocketListener(cl.Port, cm)
}

type AdminConfig struct {
	Port     uint16 `json:"port"`
	ResetKey string `json:"reset_key"`
}

func (ca *AdminConfig) validate() error {
	el := errors.NewErrorList()

	if ca.Port == 0 {
		el.Add(fmt.Errorf("admin port must be set to a positive integer"))
	}
	if ca.ResetKey == "" {
		el.Add(fmt.Errorf("admin reset_key is required"))
	}

	return el.Err()
}

func (ca *AdminConfig) BuildListener(world *game.World) *listener.AdminListener {
	return listener.NewAdminListener(ca.Port, ca.ResetKey, world)
}
