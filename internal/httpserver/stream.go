package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleSSE streams live console lines as `data: {"line": ...}` events. A
// subscriber only sees lines ingested after it attached; clients warm up
// with /api/console or /api/logs first.
func (s *Server) handleSSE(c *gin.Context) {
	stream, err := s.panel.Subscribe(c.Request.Context(), s.conf.StreamBuffer)
	if err != nil {
		writeError(c, err, "stream unavailable")
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(200)
	c.Writer.Flush()

	keepAlive := time.NewTicker(s.conf.KeepAlive)
	defer keepAlive.Stop()

	events := stream.Events()
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				return true
			}
			_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
			return err == nil
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}

// wsMessage is an inbound WebSocket frame. A non-empty Command is sent to
// the server console.
type wsMessage struct {
	Command string `json:"command"`
}

type wsReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// handleWebSocket carries the same events as the SSE stream and accepts
// console commands in the other direction. All writes happen on this
// goroutine; the read loop hands replies over a channel.
func (s *Server) handleWebSocket(c *gin.Context) {
	stream, err := s.panel.Subscribe(c.Request.Context(), s.conf.StreamBuffer)
	if err != nil {
		writeError(c, err, "stream unavailable")
		return
	}
	defer stream.Close()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("httpserver: websocket upgrade: %v", err)
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()
	replies := make(chan wsReply, 8)
	readDone := make(chan struct{})
	go s.readWebSocket(ctx, ws, replies, readDone)

	ping := time.NewTicker(s.conf.KeepAlive)
	defer ping.Stop()

	events := stream.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		case r := <-replies:
			if err := ws.WriteJSON(r); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-readDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) readWebSocket(ctx context.Context, ws *websocket.Conn, replies chan<- wsReply, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			msg.Command = string(data)
		}
		reply := wsReply{OK: true}
		if err := s.panel.SendCommand(ctx, msg.Command); err != nil {
			e := classify(err, "Command failed")
			reply = wsReply{Error: e.message, Code: e.code}
		}
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}
