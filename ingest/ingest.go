// Package ingest converts uploaded files into indexed vector documents.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/vectoscalar/vsgpt/vector"
)

const (
	DefaultChunkSize = 1024
	DefaultOverlap   = 128
)

type Config struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// Report summarizes one successful ingestion batch.
type Report struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

type Ingestor struct {
	collection vector.Collection
	chunkSize  int
	overlap    int
	log        *zap.Logger
}

func NewIngestor(collection vector.Collection, cfg Config) *Ingestor {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	overlap := cfg.Overlap
	if overlap < 0 {
		overlap = DefaultOverlap
	}

	return &Ingestor{
		collection: collection,
		chunkSize:  chunkSize,
		overlap:    overlap,
		log: zap.L().With(
			zap.String("service", "ingest"),
		),
	}
}

// Ingest extracts, splits and indexes every file in the batch. Documents
// previously ingested from the same source are replaced, so re-running on
// the same files leaves the store reflecting the union. The first
// file-level failure aborts the batch; documents already written stay
// durable.
func (i *Ingestor) Ingest(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{}

	for _, path := range paths {
		log := i.log.With(
			zap.String("file", filepath.Base(path)),
		)

		text, err := ExtractText(path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
		}

		source := filepath.Base(path)
		docs := i.buildDocuments(source, text)

		if err := i.collection.DeleteBySource(ctx, source); err != nil {
			return nil, fmt.Errorf("replace %s: %w", source, err)
		}

		if err := i.collection.AddDocuments(ctx, docs); err != nil {
			return nil, fmt.Errorf("index %s: %w", source, err)
		}

		report.Files++
		report.Chunks += len(docs)

		log.Info("file ingested", zap.Int("chunks", len(docs)))
	}

	return report, nil
}

func (i *Ingestor) buildDocuments(source, text string) []vector.Document {
	chunks := SplitText(text, i.chunkSize, i.overlap)

	docs := make([]vector.Document, 0, len(chunks))
	for idx, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		docs = append(docs, vector.Document{
			ID:      documentID(source, idx, chunk),
			Content: chunk,
			Metadata: map[string]string{
				"source": source,
				"chunk":  strconv.Itoa(idx),
			},
		})
	}

	return docs
}

// documentID is deterministic over source, position and content, so
// re-adding identical chunks overwrites instead of duplicating.
func documentID(source string, index int, chunk string) string {
	data := fmt.Sprintf("%s|%d|%s", source, index, chunk)
	hash := sha256.Sum256([]byte(data))
	return "doc_" + hex.EncodeToString(hash[:12])
}

// ExtractText reads a file and returns its plain text. PDF files go
// through the PDF parser; anything else is read as-is.
func ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if !IsPDF(path) {
		return string(data), nil
	}

	return extractPDFText(data)
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// IsPDF reports whether the filename carries a .pdf extension.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
