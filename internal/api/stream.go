package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API already allows cross-origin callers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSessionStream upgrades the connection and drives the interactive
// question loop: the client sends {"phenotype": ..., "answer": ...} frames,
// and every recorded answer pushes a SessionEvent carrying the updated
// ranking and the next suggested question to all subscribers, this
// connection included. The stream ends when the client disconnects.
func (s *Server) handleSessionStream(c *gin.Context) {
	session, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := session.Subscribe()
	defer cancel()

	// Reader goroutine hands client frames to the write loop so that all
	// writes stay on one goroutine. Closing inbound signals disconnect;
	// closing done releases a reader stuck on a full inbound buffer after
	// the write loop has returned.
	inbound := make(chan []byte, 4)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(inbound)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case inbound <- data:
			case <-done:
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case data, open := <-inbound:
			if !open {
				return
			}
			if msg := s.applyStreamAnswer(c, session.ID(), data); msg != "" {
				conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteJSON(gin.H{"error": msg}); err != nil {
					return
				}
			}
		case event, open := <-events:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// applyStreamAnswer decodes one client frame and records the answer. The
// resulting ranking reaches the client through the subscription, so only an
// error message, if any, is returned for direct delivery.
func (s *Server) applyStreamAnswer(c *gin.Context, sessionID string, data []byte) string {
	var req sessionAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Phenotype == "" {
		return "expected {\"phenotype\": ..., \"answer\": ...}"
	}
	answer, ok := domain.ParseAnswer(req.Answer)
	if !ok {
		return "answer must be yes, no, or unknown"
	}
	if _, err := s.sessions.Answer(c.Request.Context(), sessionID, req.Phenotype, answer); err != nil {
		s.logger.WithError(err).Warn("Stream answer failed")
		return "failed to record answer"
	}
	return ""
}
