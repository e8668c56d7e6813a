package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stellarworks/universe-simulator/internal/logging"
	"github.com/stellarworks/universe-simulator/timectrl"
)

const (
	// streamWriteWait bounds a single WebSocket write; slow clients
	// are dropped rather than allowed to stall the stream.
	streamWriteWait = 10 * time.Second

	// streamBuffer is how many clock updates may queue per client
	// before newer ones overwrite delivery (drop on full).
	streamBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type clockJSON struct {
	Offset     float64 `json:"offset"`
	Scale      float64 `json:"scale"`
	Playing    bool    `json:"playing"`
	JulianDate float64 `json:"julian_date"`
}

func (s *Server) clockSnapshot() clockJSON {
	snap := s.clock.Snapshot()
	return clockJSON{
		Offset:     snap.Offset,
		Scale:      snap.Scale,
		Playing:    snap.Playing,
		JulianDate: s.clock.JulianDate(),
	}
}

func (s *Server) handleClockGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clockSnapshot())
}

type clockCommand struct {
	Action string   `json:"action"`
	Value  *float64 `json:"value"`
}

func (s *Server) handleClockCommand(w http.ResponseWriter, r *http.Request) {
	var cmd clockCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		s.writeError(w, r, badRequest("malformed clock command"))
		return
	}

	switch cmd.Action {
	case "toggle":
		s.clock.Toggle()
	case "set_scale":
		if cmd.Value == nil {
			s.writeError(w, r, badRequest("set_scale requires a value"))
			return
		}
		s.clock.SetScale(*cmd.Value)
	case "set_offset":
		if cmd.Value == nil {
			s.writeError(w, r, badRequest("set_offset requires a value"))
			return
		}
		s.clock.SetOffset(*cmd.Value)
	default:
		s.writeError(w, r, badRequest(fmt.Sprintf("unknown clock action %q", cmd.Action)))
		return
	}

	writeJSON(w, http.StatusOK, s.clockSnapshot())
}

// handleClockStream upgrades to a WebSocket and pushes a clock snapshot
// on every mutation until the client disconnects. Updates that arrive
// faster than the client drains are dropped.
func (s *Server) handleClockStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	updates := make(chan timectrl.SimulationTime, streamBuffer)
	unsubscribe := s.clock.Subscribe(func(t timectrl.SimulationTime) {
		select {
		case updates <- t:
		default:
		}
	})
	defer unsubscribe()

	// Read loop only to observe the client closing.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeClockFrame(conn, s.clockSnapshot()); err != nil {
		return
	}

	for {
		select {
		case <-clientGone:
			return
		case <-r.Context().Done():
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		case snap := <-updates:
			frame := clockJSON{
				Offset:     snap.Offset,
				Scale:      snap.Scale,
				Playing:    snap.Playing,
				JulianDate: s.clock.JulianDate(),
			}
			if err := s.writeClockFrame(conn, frame); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeClockFrame(conn *websocket.Conn, frame clockJSON) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
