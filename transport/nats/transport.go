package nats

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/vectoscalar/vsgpt"
	"github.com/vectoscalar/vsgpt/chain"
	"github.com/vectoscalar/vsgpt/ingest"
	"github.com/vectoscalar/vsgpt/vector"
)

func IngestDocumentsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req vsgpt.IngestDocumentsRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		report, ok := resp.(*ingest.Report)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(report)
	}
}

// AskHandler drains the answer stream into a single reply; request/reply
// messaging cannot stream fragments.
func AskHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req vsgpt.AskRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		events, ok := resp.(<-chan chain.Event)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		var (
			answer  strings.Builder
			sources []vector.Document
		)

		for event := range events {
			switch e := event.(type) {
			case chain.TextFragment:
				answer.WriteString(e.Content)
			case chain.SourceBatch:
				sources = e.Documents
			case chain.Failure:
				r.Error("417", e.Err.Error(), nil)
				return
			}
		}

		r.RespondJSON(&vsgpt.AskResponse{
			Answer:  answer.String(),
			Sources: sources,
		})
	}
}

func SearchDocumentsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req vsgpt.SearchDocumentsRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		docs, ok := resp.([]vector.Document)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&docs)
	}
}

func StatusHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		status, ok := resp.(*vsgpt.Status)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(status)
	}
}
