package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/teampoints/internal/model"
	"github.com/yakoovad/teampoints/internal/watch"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type watchEvent struct {
	TeamID  string          `json:"team_id"`
	Members []*model.Member `json:"members"`
	Error   string          `json:"error,omitempty"`
}

func (h *Handler) WatchTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")

	snapshots, cancel := h.leaderboard.Watch(teamID)
	defer cancel()

	conn, err := upgrader.Upgrade(e.Response(), e.Request(), nil)
	if err != nil {
		l.Error("failed to upgrade connection", zap.String("team_id", teamID), zap.Any("error", err))
		return nil
	}
	defer conn.Close()

	l.Info("observer attached", zap.String("team_id", teamID))

	// Drain incoming frames so close messages from the peer are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(toWatchEvent(snap)); err != nil {
				l.Info("observer detached", zap.String("team_id", teamID), zap.Any("error", err))
				return nil
			}
		case <-closed:
			l.Info("observer detached", zap.String("team_id", teamID))
			return nil
		case <-e.Request().Context().Done():
			return nil
		}
	}
}

func toWatchEvent(snap watch.Snapshot) watchEvent {
	event := watchEvent{
		TeamID:  snap.TeamID,
		Members: snap.Members,
	}
	if snap.Err != nil {
		event.Error = snap.Err.Error()
	}
	return event
}
