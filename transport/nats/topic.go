package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/vectoscalar/vsgpt"
)

func AddEndpoints(group micro.Group, endpoints vsgpt.EndpointSet) {
	group.AddEndpoint("ingest_documents", IngestDocumentsHandler(endpoints.IngestDocuments))
	group.AddEndpoint("ask", AskHandler(endpoints.Ask))
	group.AddEndpoint("search_documents", SearchDocumentsHandler(endpoints.SearchDocuments))
	group.AddEndpoint("status", StatusHandler(endpoints.Status))
}
