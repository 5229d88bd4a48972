package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/vectoscalar/vsgpt"
	"github.com/vectoscalar/vsgpt/ingest"
	"github.com/vectoscalar/vsgpt/vector"
)

// MakeEndpoints builds client-side endpoints speaking to a remote service
// over NATS request/reply.
func MakeEndpoints(nc *nats.Conn, prefix string) *vsgpt.EndpointSet {
	return &vsgpt.EndpointSet{
		IngestDocuments: IngestDocumentsEndpoint(nc, prefix+".ingest_documents"),
		Ask:             AskEndpoint(nc, prefix+".ask"),
		SearchDocuments: SearchDocumentsEndpoint(nc, prefix+".search_documents"),
		Status:          StatusEndpoint(nc, prefix+".status"),
	}
}

func IngestDocumentsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(vsgpt.IngestDocumentsRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var report ingest.Report
		if err := json.Unmarshal(resp.Data, &report); err != nil {
			return nil, err
		}

		return &report, nil
	}
}

func AskEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(vsgpt.AskRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		// Generation takes far longer than the default request timeout.
		resp, err := nc.Request(topic, data, 2*time.Minute)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var answer vsgpt.AskResponse
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return &answer, nil
	}
}

func SearchDocumentsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(vsgpt.SearchDocumentsRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var docs []vector.Document
		if err := json.Unmarshal(resp.Data, &docs); err != nil {
			return nil, err
		}

		return docs, nil
	}
}

func StatusEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := nc.Request(topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var status vsgpt.Status
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			return nil, err
		}

		return &status, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
