package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dj-oyu/moodface/internal/codec"
	"github.com/dj-oyu/moodface/internal/logger"
	"github.com/dj-oyu/moodface/pkg/types"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleLandmarksWS ingests frames from a long-lived detector connection.
// Text messages carry JSON frames, binary messages protobuf frames. Every
// frame is answered with a JSON event or an error object; bad frames do not
// close the connection.
func (s *Server) handleLandmarksWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket", "Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	s.clientConnected()
	defer s.clientDisconnected()
	logger.Info("WebSocket", "Detector %s connected from %s", id, r.RemoteAddr)

	conn.SetReadLimit(codec.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("WebSocket", "Detector %s read error: %v", id, err)
			}
			logger.Info("WebSocket", "Detector %s disconnected", id)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var frame types.LandmarkFrame
		switch msgType {
		case websocket.TextMessage:
			frame, err = codec.DecodeLandmarkFrameJSON(bytes.NewReader(data))
		case websocket.BinaryMessage:
			frame, err = codec.UnmarshalLandmarkFrame(data)
		default:
			continue
		}

		var reply any
		if err != nil {
			s.rejectFrame(err)
			reply = errorResponse{Error: err.Error()}
		} else {
			reply = s.Ingest(frame)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				logger.Debug("WebSocket", "Detector %s write failed: %v", id, err)
			}
			return
		}
	}
}

// pingLoop keeps the read deadline alive. WriteControl may run concurrently
// with the reply writer.
func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
