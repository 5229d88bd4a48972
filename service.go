package vsgpt

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vectoscalar/vsgpt/chain"
	"github.com/vectoscalar/vsgpt/ingest"
	"github.com/vectoscalar/vsgpt/llm"
	"github.com/vectoscalar/vsgpt/rerank"
	"github.com/vectoscalar/vsgpt/retriever"
	"github.com/vectoscalar/vsgpt/vector"
)

// Service defines the core logic of the document question-answering
// assistant.
type Service interface {

	// Close gracefully shuts down the service.
	Close() error

	// IngestDocuments indexes the given files into the vector store and
	// records completion metadata on success.
	IngestDocuments(ctx context.Context, paths []string) (*ingest.Report, error)

	// Ask answers a question with a streamed sequence of events scoped
	// to the given session.
	Ask(ctx context.Context, question string, sessionID string) (<-chan chain.Event, error)

	// SearchDocuments runs the retrieval pipeline without generation.
	SearchDocuments(ctx context.Context, query string, k ...int) ([]vector.Document, error)

	// Status returns the derived store state, cached for a short window.
	Status(ctx context.Context) (*Status, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, db vector.VectorDB, model llm.Provider, encoder rerank.CrossEncoder) (Service, error) {
	cfg.ApplyDefaults()

	log := zap.L().With(
		zap.String("service", "vsgpt"),
	)

	collection, err := db.Collection(cfg.Vector.Collection)
	if err != nil {
		return nil, err
	}

	svc := &service{
		cfg:        cfg,
		collection: collection,
		ingestor:   ingest.NewIngestor(collection, cfg.Ingest),
		model:      model,
		encoder:    encoder,
		sessions:   chain.NewSessionStore(cfg.Greeting, cfg.ConversationMessagesLimit),
		log:        log,
	}

	svc.lastTrained = svc.readLastTrained()

	return svc, nil
}

type service struct {
	cfg        Config
	collection vector.Collection
	ingestor   *ingest.Ingestor
	model      llm.Provider
	encoder    rerank.CrossEncoder
	sessions   *chain.SessionStore

	// The composed pipeline is built once and cached; ingestion
	// invalidates it so queries never run against pre-ingestion state.
	pipelineMu sync.Mutex
	pipeline   retriever.Retriever
	qa         *chain.Chain

	// Counters are written only by the ingestion-completion path.
	countersMu  sync.Mutex
	lastTrained string

	statusMu      sync.Mutex
	cachedStatus  *Status
	statusUpdated time.Time

	log *zap.Logger
}

func (svc *service) Close() error {
	return nil
}

func (svc *service) IngestDocuments(ctx context.Context, paths []string) (*ingest.Report, error) {
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}

	report, err := svc.ingestor.Ingest(ctx, paths)
	if err != nil {
		return nil, err
	}

	now := time.Now().Format("2006-01-02 15:04:05")

	svc.countersMu.Lock()
	svc.lastTrained = now
	svc.countersMu.Unlock()

	svc.writeLastTrained(now)
	svc.invalidate()

	return report, nil
}

func (svc *service) Ask(ctx context.Context, question string, sessionID string) (<-chan chain.Event, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrMissingQuestion
	}

	qa, err := svc.loadChain()
	if err != nil {
		return nil, err
	}

	return qa.Ask(ctx, question, sessionID)
}

func (svc *service) SearchDocuments(ctx context.Context, query string, k ...int) ([]vector.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrMissingQuery
	}

	pipeline, err := svc.loadPipeline()
	if err != nil {
		return nil, err
	}

	docs, err := pipeline.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(k) > 0 && k[0] > 0 && k[0] < len(docs) {
		docs = docs[:k[0]]
	}

	return docs, nil
}

func (svc *service) Status(ctx context.Context) (*Status, error) {
	svc.statusMu.Lock()
	defer svc.statusMu.Unlock()

	ttl := svc.cfg.StatusRefreshTTL.Duration()
	if svc.cachedStatus != nil && time.Since(svc.statusUpdated) < ttl {
		return svc.cachedStatus, nil
	}

	svc.countersMu.Lock()
	lastTrained := svc.lastTrained
	svc.countersMu.Unlock()

	if lastTrained == "" {
		lastTrained = NotTrainedYet
	}

	status := &Status{
		Version:       Version,
		LastTrained:   lastTrained,
		FilesIngested: svc.countStoreFiles(),
		Ready:         svc.collection.Count() > 0,
	}

	svc.cachedStatus = status
	svc.statusUpdated = time.Now()

	return status, nil
}

// loadPipeline returns the cached retrieval pipeline, composing it on
// first use. An empty store means there is nothing to retrieve from yet.
func (svc *service) loadPipeline() (retriever.Retriever, error) {
	svc.pipelineMu.Lock()
	defer svc.pipelineMu.Unlock()

	return svc.loadPipelineLocked()
}

func (svc *service) loadPipelineLocked() (retriever.Retriever, error) {
	if svc.pipeline != nil {
		return svc.pipeline, nil
	}

	if svc.collection.Count() == 0 {
		return nil, ErrStoreUnavailable
	}

	svc.pipeline = retriever.Compose(svc.model, svc.encoder, svc.collection, svc.cfg.Retriever)

	svc.log.Info("retrieval pipeline composed",
		zap.Bool("use_reranker", svc.cfg.Retriever.UseReranker),
		zap.Bool("use_chain_filter", svc.cfg.Retriever.UseChainFilter),
	)

	return svc.pipeline, nil
}

// loadChain resolves the pipeline and builds the chain under one lock,
// so an ingestion-triggered invalidation cannot slip between the two.
func (svc *service) loadChain() (*chain.Chain, error) {
	svc.pipelineMu.Lock()
	defer svc.pipelineMu.Unlock()

	pipeline, err := svc.loadPipelineLocked()
	if err != nil {
		return nil, err
	}

	if svc.qa == nil {
		svc.qa = chain.New(pipeline, svc.model, svc.sessions, chain.Config{
			Temperature: svc.cfg.Model.Temperature,
			MaxTokens:   svc.cfg.Model.MaxTokens,
		})
	}

	return svc.qa, nil
}

func (svc *service) invalidate() {
	svc.pipelineMu.Lock()
	svc.pipeline = nil
	svc.qa = nil
	svc.pipelineMu.Unlock()

	svc.statusMu.Lock()
	svc.cachedStatus = nil
	svc.statusMu.Unlock()
}

func (svc *service) databaseDir() string {
	if !svc.cfg.Vector.Persistent || svc.cfg.Vector.Path == "" {
		return ""
	}

	return filepath.Dir(svc.cfg.Vector.Path)
}

func (svc *service) readLastTrained() string {
	dir := svc.databaseDir()
	if dir == "" {
		return ""
	}

	data, err := os.ReadFile(filepath.Join(dir, LastTrainedFile))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func (svc *service) writeLastTrained(value string) {
	dir := svc.databaseDir()
	if dir == "" {
		return
	}

	path := filepath.Join(dir, LastTrainedFile)
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		svc.log.Error("write last trained sidecar", zap.Error(err))
	}
}

// countStoreFiles mirrors the status display: the number of files the
// persisted store consists of on disk.
func (svc *service) countStoreFiles() int {
	if !svc.cfg.Vector.Persistent || svc.cfg.Vector.Path == "" {
		return svc.collection.Count()
	}

	count := 0
	filepath.WalkDir(svc.cfg.Vector.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})

	return count
}
