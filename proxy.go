package vsgpt

import (
	"context"
	"errors"

	"github.com/vectoscalar/vsgpt/chain"
	"github.com/vectoscalar/vsgpt/ingest"
	"github.com/vectoscalar/vsgpt/vector"
)

// ProxyMiddleware lets a remote client speak the Service interface over a
// request/reply transport. Answer streams arrive fully drained, so Ask
// replays them as one source batch and one text fragment.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) IngestDocuments(ctx context.Context, paths []string) (*ingest.Report, error) {
	req := IngestDocumentsRequest{
		Paths: paths,
	}

	resp, err := mw.endpoints.IngestDocuments(ctx, req)
	if err != nil {
		return nil, err
	}

	report, ok := resp.(*ingest.Report)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return report, nil
}

func (mw *proxyMiddleware) Ask(ctx context.Context, question string, sessionID string) (<-chan chain.Event, error) {
	req := AskRequest{
		Question:  question,
		SessionID: sessionID,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, ok := resp.(*AskResponse)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	events := make(chan chain.Event, 2)
	events <- chain.SourceBatch{Documents: answer.Sources}
	events <- chain.TextFragment{Content: answer.Answer}
	close(events)

	return events, nil
}

func (mw *proxyMiddleware) SearchDocuments(ctx context.Context, query string, k ...int) ([]vector.Document, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := SearchDocumentsRequest{
		Query: query,
		K:     n,
	}

	resp, err := mw.endpoints.SearchDocuments(ctx, req)
	if err != nil {
		return nil, err
	}

	docs, ok := resp.([]vector.Document)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return docs, nil
}

func (mw *proxyMiddleware) Status(ctx context.Context) (*Status, error) {
	resp, err := mw.endpoints.Status(ctx, nil)
	if err != nil {
		return nil, err
	}

	status, ok := resp.(*Status)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return status, nil
}
