package server

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/adapter/chunk"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extract"
	"docrag/internal/adapter/index"
	"docrag/internal/adapter/llm"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

type wordCodec struct{}

func (wordCodec) Encode(text string) []int {
	return make([]int, len(strings.Fields(text)))
}

func (wordCodec) Decode(tokens []int) string {
	return strings.Repeat("x ", len(tokens))
}

const testDocument = `The quarterly report covers all passenger bookings made between
January and March, including ticket numbers, travel dates, and the full
name of every passenger on each booking. Refunds issued during the same
period are listed in the final section together with the agent who
approved them and the reason recorded at the time of cancellation.`

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Paths.DocumentDir = filepath.Join(root, "documents")
	cfg.Paths.DatasetDir = filepath.Join(root, "datasets")
	cfg.Paths.IndexPath = filepath.Join(root, "index", "vectors.db")
	require.NoError(t, cfg.EnsureDirs())

	mgr := index.NewManager(func() (port.VectorIndex, error) {
		return index.OpenBolt(cfg.Paths.IndexPath, embedding.NewMock(16), cfg.Ingest.EmbedBatchSize)
	})
	t.Cleanup(func() { mgr.Close() })

	splitter := chunk.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	processor := chunk.NewProcessor(splitter, wordCodec{}, cfg.Ingest.MaxChars, cfg.Ingest.MaxTokens)
	ingestor := usecase.NewIngestor(cfg, extract.New(cfg.OCR), processor, mgr)

	retriever := usecase.NewRetriever(mgr, nil)
	queryProcessor := usecase.NewQueryProcessor(retriever, &llm.Mock{Response: "A quarterly booking report."})

	return New(cfg, ingestor, queryProcessor, mgr), cfg
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()
	var reply map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestUploadThenQuery(t *testing.T) {
	srv, cfg := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "file_meta", "filename": "report.txt", "size": len(testDocument),
	}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte(testDocument)))

	reply := readReply(t, conn)
	assert.Equal(t, "status", reply["type"])
	assert.Contains(t, reply["message"], "1 passages indexed")

	uploaded, err := os.ReadFile(filepath.Join(cfg.Paths.DocumentDir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, testDocument, string(uploaded))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "query", "question": "what does the quarterly report cover",
	}))

	reply = readReply(t, conn)
	assert.Equal(t, "answer", reply["type"])
	assert.Equal(t, "A quarterly booking report.", reply["answer"])
}

func TestBinaryWithoutMetaIsDropped(t *testing.T) {
	srv, cfg := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("orphan payload")))

	// Messages are handled in order, so if the orphan frame had produced
	// a reply it would arrive before the reply to this query. The first
	// reply being the query error proves the frame was dropped silently.
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "query", "question": ""}))
	reply := readReply(t, conn)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Question missing", reply["message"])

	entries, err := os.ReadDir(cfg.Paths.DocumentDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQueryWithoutQuestion(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "query"}))

	reply := readReply(t, conn)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Question missing", reply["message"])
}

func TestGibberishQueryRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "query", "question": "zx"}))

	reply := readReply(t, conn)
	assert.Equal(t, "answer", reply["type"])
	assert.Equal(t, usecase.RejectionMessage, reply["answer"])
}

func TestMalformedMessageIgnored(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "mystery"}))

	// Both frames are dropped silently; the next valid message still works.
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "query", "question": ""}))
	reply := readReply(t, conn)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Question missing", reply["message"])
}
