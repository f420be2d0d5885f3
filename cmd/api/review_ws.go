package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"repolens/internal/review"
)

const (
	analyzeWSWriteWait = 10 * time.Second
	analyzeWSPongWait  = 60 * time.Second
	analyzeWSPingEvery = (analyzeWSPongWait * 9) / 10
)

var analyzeWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type analyzeWSOutbound struct {
	Type    string         `json:"type"`
	Event   *review.Event  `json:"event,omitempty"`
	Report  *review.Report `json:"report,omitempty"`
	Message string         `json:"message,omitempty"`
}

// handleAnalyzeWS runs one batch per connection: the client sends a single
// analyze request, receives a progress event per file, then the report.
// A client disconnect cancels the batch; r.Context() does not cover a
// hijacked connection, so the read loop below is what detects it.
func (s *apiServer) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := analyzeWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(analyzeWSPongWait)); err != nil {
		log.Printf("analyze ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(analyzeWSPongWait))
	})

	var req analyzeRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}

	// Keep reading so pong frames are processed and a closed peer is
	// noticed while the batch runs. Inbound data frames are discarded.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	writeCh := make(chan analyzeWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(analyzeWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out, ok := <-writeCh:
				if !ok {
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(analyzeWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(analyzeWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	report, err := s.orch.Analyze(ctx, req.RepoID, req.Model, req.paths(), func(ev review.Event) {
		e := ev
		pushAnalyzeWS(writeCh, analyzeWSOutbound{Type: "progress", Event: &e})
	})
	if err != nil {
		select {
		case writeCh <- analyzeWSOutbound{Type: "error", Message: err.Error()}:
		case <-ctx.Done():
		}
	} else {
		s.archiveReport(report)
		select {
		case writeCh <- analyzeWSOutbound{Type: "report", Report: report}:
		case <-ctx.Done():
		}
	}

	close(writeCh)
	<-writerDone
}

// pushAnalyzeWS enqueues a progress frame without ever blocking the
// producer: when the buffer is full the oldest frame is dropped. Terminal
// frames are sent directly and never pass through here.
func pushAnalyzeWS(writeCh chan analyzeWSOutbound, out analyzeWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
