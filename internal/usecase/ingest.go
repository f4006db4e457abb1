package usecase

import (
	"runtime"
	"sync"

	"github.com/charmbracelet/log"

	"docrag/config"
	"docrag/internal/adapter/extract"
	"docrag/internal/adapter/index"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// maxChunkWorkers caps the chunking pool; chunking is CPU-bound and
// more workers than cores just thrash.
const maxChunkWorkers = 8

// Ingestor runs the full ingestion pipeline: extract every input
// document, persist the intermediate records, chunk them in parallel,
// and rebuild the vector index. Every run re-processes the whole
// document corpus, not just the newest upload; that makes each upload
// O(all documents) and is the accepted cost of keeping the index
// build trivially consistent.
type Ingestor struct {
	cfg       *config.Config
	extractor *extract.Extractor
	processor port.ChunkProcessor
	index     *index.Manager

	// Progress, when set, is called after each record is chunked.
	Progress func(done, total int)
}

// NewIngestor creates the ingestion pipeline.
func NewIngestor(cfg *config.Config, extractor *extract.Extractor, processor port.ChunkProcessor, manager *index.Manager) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		extractor: extractor,
		processor: processor,
		index:     manager,
	}
}

// Ingest runs the pipeline and returns the number of passages indexed.
// Fatal conditions (no input files, no passages, nothing embedded)
// come back as the domain sentinels.
func (u *Ingestor) Ingest() (int, error) {
	records, err := u.extractor.ExtractAll(u.cfg.Paths.DocumentDir)
	if err != nil {
		return 0, err
	}

	if err := extract.WriteDataset(u.cfg.DatasetFile(), records); err != nil {
		return 0, err
	}

	passages := u.chunkAll(records)
	if len(passages) == 0 {
		return 0, domain.ErrNoPassages
	}

	if err := u.index.Rebuild(passages); err != nil {
		return 0, err
	}

	log.Info("ingestion complete", "records", len(records), "passages", len(passages))
	return len(passages), nil
}

// chunkAll processes records through a fixed-size worker pool. Records
// are independent and output order across workers is not preserved;
// nothing downstream may rely on it.
func (u *Ingestor) chunkAll(records []domain.Record) []domain.Passage {
	workers := u.cfg.Ingest.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > maxChunkWorkers {
			workers = maxChunkWorkers
		}
	}

	jobs := make(chan domain.Record)
	results := make(chan []domain.Passage)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- u.processor.Process(rec)
			}
		}()
	}

	go func() {
		for _, rec := range records {
			jobs <- rec
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var passages []domain.Passage
	done := 0
	for batch := range results {
		passages = append(passages, batch...)
		done++
		if u.Progress != nil {
			u.Progress(done, len(records))
		}
	}
	return passages
}
