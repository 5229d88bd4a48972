package vsgpt

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/vectoscalar/vsgpt/vector"
)

type EndpointSet struct {
	IngestDocuments endpoint.Endpoint
	Ask             endpoint.Endpoint
	SearchDocuments endpoint.Endpoint
	Status          endpoint.Endpoint
}

type IngestDocumentsRequest struct {
	Paths []string `json:"paths"`
}

func IngestDocumentsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestDocumentsRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.IngestDocuments(ctx, req.Paths)
	}
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// AskResponse is the drained form of an answer stream, used by
// request/reply transports that cannot stream.
type AskResponse struct {
	Answer  string            `json:"answer"`
	Sources []vector.Document `json:"sources,omitempty"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Ask(ctx, req.Question, req.SessionID)
	}
}

type SearchDocumentsRequest struct {
	Query string `json:"query" form:"query"`
	K     int    `json:"k,omitempty" form:"k"`
}

func SearchDocumentsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchDocumentsRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.SearchDocuments(ctx, req.Query, req.K)
	}
}

func StatusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Status(ctx)
	}
}
