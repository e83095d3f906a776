package events

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultStreamBuffer = 64
	defaultKeepAlive    = 15 * time.Second
)

// Stream exposes bus traffic as a server-sent event stream so listeners
// outside the process see the same notifications as in-process ones.
type Stream struct {
	Bus       *Bus
	Log       *zap.Logger
	Buffer    int
	KeepAlive time.Duration
}

func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	buffer := s.Buffer
	if buffer <= 0 {
		buffer = defaultStreamBuffer
	}
	keepAlive := s.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Warn("event stream: flush unsupported", zap.Error(err))
		return
	}

	ch := make(chan Event, buffer)
	unsubscribe := s.Bus.SubscribeAll(func(ev Event) {
		select {
		case ch <- ev:
		default:
			log.Warn("event stream: client too slow, dropping event", zap.String("event", ev.Name))
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := writeFrame(w, ev); err != nil {
				log.Debug("event stream: write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeFrame(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev.Detail)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
