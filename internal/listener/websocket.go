package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The game is served from arbitrary origins during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebsocketListener accepts game client connections and hands each one to
// the connection manager.
type WebsocketListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewWebsocketListener(port uint16, cm *ConnectionManager) *WebsocketListener {
	return &WebsocketListener{
		port: port,
		cm:   cm,
	}
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	// All connections share one context so shutdown cancels every session.
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("upgrading connection", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		l.cm.AcceptConnection(connCtx, conn, clientOrigin(r))
	})

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", l.port),
		Handler: mux,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			cancelConns()
			if err := svr.Shutdown(context.Background()); err != nil {
				slog.Warn("shutting down websocket listener", "error", err)
			}
		case <-done:
		}
	}()

	slog.InfoContext(ctx, "websocket listener starting", "port", l.port)

	err := svr.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
	}

	return nil
}

// clientOrigin identifies where a connection came from, used to distinguish
// a tab refresh from a second player trying to claim an active username.
func clientOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
