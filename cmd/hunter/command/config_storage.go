package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"gridhunter/internal/storage"
)

type StorageConfig struct {
	Path string `json:"path"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage path is required"))
	}

	return el.Err()
}

func (c *StorageConfig) BuildStore() (*storage.SnapshotStore, error) {
	return storage.NewSnapshotStore(c.Path)
}
