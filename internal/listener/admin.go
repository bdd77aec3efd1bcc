package listener

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gridhunter/internal/game"
)

// AdminListener serves the administrative endpoints: account deletion and a
// key-gated full reset. It binds separately from the game listener so the
// admin surface can stay off the public port.
type AdminListener struct {
	port     uint16
	resetKey string
	world    *game.World
}

func NewAdminListener(port uint16, resetKey string, world *game.World) *AdminListener {
	return &AdminListener{
		port:     port,
		resetKey: resetKey,
		world:    world,
	}
}

func (l *AdminListener) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /admin/accounts/{username}", l.handleDeleteAccount)
	mux.HandleFunc("POST /admin/reset", l.handleReset)

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", l.port),
		Handler: mux,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			if err := svr.Shutdown(context.Background()); err != nil {
				slog.Warn("shutting down admin listener", "error", err)
			}
		case <-done:
		}
	}()

	slog.InfoContext(ctx, "admin listener starting", "port", l.port)

	err := svr.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving admin on port %d: %w", l.port, err)
	}

	return nil
}

// handleDeleteAccount removes a username's persisted record and disconnects
// any active session using it.
func (l *AdminListener) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	if !l.world.DeleteAccount(username) {
		http.Error(w, "unknown username", http.StatusNotFound)
		return
	}

	slog.Info("account deleted", "username", username)
	w.WriteHeader(http.StatusNoContent)
}

// handleReset wipes all in-memory and persisted state. The reset key must be
// supplied in the X-Reset-Key header.
func (l *AdminListener) handleReset(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Reset-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(l.resetKey)) != 1 {
		http.Error(w, "invalid reset key", http.StatusForbidden)
		return
	}

	l.world.Reset()
	slog.Info("world reset by admin request")
	w.WriteHeader(http.StatusNoContent)
}
