package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"docrag/internal/domain"
)

const defaultRole = "engineer"

// inboundMessage covers every recognized text frame shape.
type inboundMessage struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Question string `json:"question,omitempty"`
	Role     string `json:"role,omitempty"`
}

type answerMessage struct {
	Type   string `json:"type"`
	Answer string `json:"answer"`
}

type statusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// session is one connection's state machine. A binary frame is only
// accepted while a filename is pending from a prior file_meta message;
// chat history is append-only and dies with the connection.
type session struct {
	server *Server
	conn   *websocket.Conn

	pendingFilename string
	history         []domain.ChatTurn
}

func newSession(s *Server, conn *websocket.Conn) *session {
	return &session{server: s, conn: conn}
}

// run reads frames until the connection closes. One message is fully
// resolved, including a blocking ingestion run, before the next is read.
func (s *session) run() {
	defer s.conn.Close()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			log.Info("client disconnected", "remote", s.conn.RemoteAddr())
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.handleText(data)
		case websocket.BinaryMessage:
			s.handleBinary(data)
		}
	}
}

// handleText dispatches a JSON frame. Malformed JSON and unknown types
// are logged and dropped without a reply.
func (s *session) handleText(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn("dropping malformed message", "error", err)
		return
	}

	switch msg.Type {
	case "file_meta":
		// Base strips any client-supplied path components.
		s.pendingFilename = filepath.Base(msg.Filename)
		log.Info("awaiting upload", "filename", s.pendingFilename, "size", msg.Size)
	case "query":
		s.handleQuery(msg)
	default:
		log.Warn("dropping message with unknown type", "type", msg.Type)
	}
}

// handleBinary persists an announced upload and runs ingestion. A
// binary frame with no pending filename is a protocol violation:
// logged, dropped, no reply.
func (s *session) handleBinary(data []byte) {
	if s.pendingFilename == "" {
		log.Warn("dropping binary frame with no announced filename", "bytes", len(data))
		return
	}

	path := filepath.Join(s.server.cfg.Paths.DocumentDir, s.pendingFilename)
	s.pendingFilename = ""

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error("failed to persist upload", "path", path, "error", err)
		s.send(errorMessage{Type: "error", Message: "Failed to store uploaded file."})
		return
	}
	log.Info("upload stored", "path", path, "bytes", len(data))

	count, err := s.server.ingestor.Ingest()
	if err != nil {
		log.Error("ingestion failed", "error", err)
		s.send(errorMessage{Type: "error", Message: fmt.Sprintf("Ingestion failed: %v", err)})
		return
	}

	// Force the next search to reload the freshly built index.
	s.server.index.Invalidate()

	s.send(statusMessage{
		Type:    "status",
		Message: fmt.Sprintf("File ingested successfully. %d passages indexed.", count),
	})
}

func (s *session) handleQuery(msg inboundMessage) {
	if msg.Question == "" {
		s.send(errorMessage{Type: "error", Message: "Question missing"})
		return
	}

	role := msg.Role
	if role == "" {
		role = defaultRole
	}
	log.Info("processing query", "role", role, "question", msg.Question)

	result, err := s.server.processor.Answer(context.Background(), msg.Question, s.history)
	if err != nil {
		log.Error("query failed", "error", err)
		s.send(errorMessage{Type: "error", Message: fmt.Sprintf("Query failed: %v", err)})
		return
	}

	s.send(answerMessage{Type: "answer", Answer: result.Answer})

	// Rejected answers are noise; keeping them out of history protects
	// later rewrites from garbage context.
	if !result.Rejected {
		s.history = append(s.history, domain.ChatTurn{Question: msg.Question, Answer: result.Answer})
	}
}

func (s *session) send(v any) {
	if err := s.conn.WriteJSON(v); err != nil {
		log.Error("failed to write message", "error", err)
	}
}
