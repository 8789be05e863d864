package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pocketbook/internal/core"
	"pocketbook/internal/ledger"
	applog "pocketbook/internal/log"
)

func (s *Server) handleExpenseEvents(w http.ResponseWriter, r *http.Request) {
	s.streamSnapshots(w, r, s.expenses)
}

func (s *Server) handleTransactionEvents(w http.ResponseWriter, r *http.Request) {
	s.streamSnapshots(w, r, s.transactions)
}

// streamSnapshots sends the current snapshot and then every change as
// server-sent events. A slow client only ever gets the latest snapshot.
func (s *Server) streamSnapshots(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	rc := http.NewResponseController(w)

	updates := make(chan []core.Record, 1)
	unsubscribe := l.Subscribe(func(snapshot []core.Record) {
		// Called with the ledger's write lock held: never block.
		for {
			select {
			case updates <- snapshot:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.WarnContext(r.Context(), "Streaming not supported", applog.FieldError, err)
		return
	}

	s.logger.DebugContext(r.Context(), "Snapshot stream opened", applog.FieldLedger, string(l.Kind()))

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.DebugContext(r.Context(), "Snapshot stream closed", applog.FieldLedger, string(l.Kind()))
			return
		case snapshot := <-updates:
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snapshot []core.Record) error {
	data, err := json.Marshal(listResponse{Records: snapshot, Count: len(snapshot)})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}
