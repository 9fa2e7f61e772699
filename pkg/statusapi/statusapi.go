// Package statusapi exposes a read-only HTTP status surface for a
// chunkserver or master daemon: current copies/availability state per goal,
// and a websocket feed pushing state transitions live. This is the
// operator-facing counterpart to the admin CLI surface (§6, out of core),
// scoped here to the status view only.
//
// Grounded on the teacher repo's api/server.go for the httprouter-based
// Server struct and route registration idiom, extended with
// gorilla/websocket for the push feed the teacher pack doesn't itself use
// but another example repo in the pack wires for live updates.
package statusapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/NebulousLabs/errors"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/lizardfs/dataplane/pkg/redundancy"
)

// Server serves the status HTTP surface.
type Server struct {
	router   *httprouter.Router
	upgrader websocket.Upgrader

	mu        sync.Mutex
	reports   map[string]redundancy.CopiesReport // goal name -> latest report
	listeners map[*websocket.Conn]bool
}

// New returns a Server with routes registered.
func New() *Server {
	s := &Server{
		router:    httprouter.New(),
		reports:   map[string]redundancy.CopiesReport{},
		listeners: map[*websocket.Conn]bool{},
	}
	s.router.GET("/goals/:name", s.handleGoal)
	s.router.GET("/goals", s.handleGoals)
	s.router.GET("/feed", s.handleFeed)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// UpdateGoal records goal's latest copies report and pushes it to every
// connected feed listener.
func (s *Server) UpdateGoal(name string, report redundancy.CopiesReport) {
	s.mu.Lock()
	s.reports[name] = report
	listeners := make([]*websocket.Conn, 0, len(s.listeners))
	for c := range s.listeners {
		listeners = append(listeners, c)
	}
	s.mu.Unlock()

	payload, err := json.Marshal(struct {
		Goal   string                    `json:"goal"`
		Report redundancy.CopiesReport `json:"report"`
	}{name, report})
	if err != nil {
		return
	}
	for _, c := range listeners {
		if c.WriteMessage(websocket.TextMessage, payload) != nil {
			s.mu.Lock()
			delete(s.listeners, c)
			s.mu.Unlock()
		}
	}
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	s.mu.Lock()
	report, ok := s.reports[name]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown goal", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	json.NewEncoder(w).Encode(s.reports)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.listeners[conn] = true
	s.mu.Unlock()
}

// ErrNotRunning reports that the status server is not running. No function
// in this package returns it; it is kept here rather than in cmd/ since
// multiple daemons share this surface.
var ErrNotRunning = errors.New("statusapi: server not running")
