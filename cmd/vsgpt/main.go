package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vectoscalar/vsgpt"
	"github.com/vectoscalar/vsgpt/persistence/chromem"
	"github.com/vectoscalar/vsgpt/rerank"

	httpT "github.com/vectoscalar/vsgpt/transport/http"
	natsT "github.com/vectoscalar/vsgpt/transport/nats"
)

func main() {
	godotenv.Load()

	cmd := &cli.Command{
		Name:  "vsgpt",
		Usage: "Document question-answering service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the service data directory",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL (enables the NATS transport)",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
			&cli.StringFlag{
				Name:    "groq-api-key",
				Usage:   "API key for the remote hosted model",
				Sources: cli.EnvVars("GROQ_API_KEY"),
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".vsgpt")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	var cfg vsgpt.Config
	f, err := os.Open(filepath.Join(path, "config.yaml"))
	switch {
	case err == nil:
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return err
		}

	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.

	default:
		return err
	}

	cfg.ApplyDefaults()

	cfg.Vector.Persistent = true
	cfg.Vector.Path = filepath.Join(path, "docs-db", "vectors")

	if key := cmd.String("groq-api-key"); key != "" {
		cfg.Model.APIKey = key
	}

	db, err := chromem.NewChromemVectorDB(cfg.Vector)
	if err != nil {
		return err
	}

	model := vsgpt.NewLLMProvider(cfg.Model)
	encoder := rerank.NewHTTPCrossEncoder(cfg.Rerank)

	svc, err := vsgpt.NewService(cfg, db, model, encoder)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = vsgpt.LoggingMiddleware(log)(svc)

	endpoints := vsgpt.EndpointSet{
		IngestDocuments: vsgpt.IngestDocumentsEndpoint(svc),
		Ask:             vsgpt.AskEndpoint(svc),
		SearchDocuments: vsgpt.SearchDocumentsEndpoint(svc),
		Status:          vsgpt.StatusEndpoint(svc),
	}

	// Add NATS transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		nc, err := nats.Connect(natsURL,
			nats.Name("VSGPT Service"),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "vsgpt",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("vsgpt")
		natsT.AddEndpoints(root, endpoints)
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		r.Static("/images", filepath.Join(path, "images"))
		httpT.AddRouters(r, endpoints, filepath.Join(path, "temp_docs"))

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
