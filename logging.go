package vsgpt

import (
	"context"

	"go.uber.org/zap"

	"github.com/vectoscalar/vsgpt/chain"
	"github.com/vectoscalar/vsgpt/ingest"
	"github.com/vectoscalar/vsgpt/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "vsgpt"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) IngestDocuments(ctx context.Context, paths []string) (*ingest.Report, error) {
	log := mw.log.With(
		zap.String("action", "ingest_documents"),
		zap.Int("files", len(paths)),
	)

	report, err := mw.next.IngestDocuments(ctx, paths)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents ingested",
		zap.Int("ingested", report.Files),
		zap.Int("chunks", report.Chunks),
	)

	return report, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, question string, sessionID string) (<-chan chain.Event, error) {
	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("session_id", sessionID),
	)

	events, err := mw.next.Ask(ctx, question, sessionID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("question accepted")
	return events, nil
}

func (mw *loggingMiddleware) SearchDocuments(ctx context.Context, query string, k ...int) ([]vector.Document, error) {
	log := mw.log.With(
		zap.String("action", "search_documents"),
	)

	docs, err := mw.next.SearchDocuments(ctx, query, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents retrieved", zap.Int("count", len(docs)))
	return docs, nil
}

func (mw *loggingMiddleware) Status(ctx context.Context) (*Status, error) {
	status, err := mw.next.Status(ctx)
	if err != nil {
		mw.log.Error(err.Error(), zap.String("action", "status"))
		return nil, err
	}

	return status, nil
}
