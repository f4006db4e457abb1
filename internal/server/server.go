// Package server exposes the document Q&A session protocol over a
// websocket endpoint. Each connection gets its own session goroutine;
// messages on a connection are handled strictly in order, so an upload
// that triggers ingestion blocks only its own connection.
package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"docrag/config"
	"docrag/internal/adapter/index"
	"docrag/internal/usecase"
)

// Server serves the websocket session protocol.
type Server struct {
	cfg       *config.Config
	ingestor  *usecase.Ingestor
	processor *usecase.QueryProcessor
	index     *index.Manager
	upgrader  websocket.Upgrader
}

// New creates a server wired to the ingestion pipeline and query
// processor. The index manager is shared with both so ingestion on one
// connection is visible to queries on every other.
func New(cfg *config.Config, ingestor *usecase.Ingestor, processor *usecase.QueryProcessor, manager *index.Manager) *Server {
	return &Server{
		cfg:       cfg,
		ingestor:  ingestor,
		processor: processor,
		index:     manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe blocks serving the configured address.
func (s *Server) ListenAndServe() error {
	log.Info("server listening", "addr", s.cfg.Server.Addr)
	return http.ListenAndServe(s.cfg.Server.Addr, s.Handler())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(s.cfg.Server.MaxMessageBytes)
	log.Info("client connected", "remote", conn.RemoteAddr())

	sess := newSession(s, conn)
	sess.run()
}
