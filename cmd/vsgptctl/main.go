package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/vectoscalar/vsgpt"
	"github.com/vectoscalar/vsgpt/chain"
	"github.com/vectoscalar/vsgpt/vector"

	natsT "github.com/vectoscalar/vsgpt/transport/nats"
)

func main() {
	godotenv.Load()

	cmd := &cli.Command{
		Name:  "vsgptctl",
		Usage: "Remote client for the vsgpt service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   nats.DefaultURL,
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Service subject prefix",
				Value: "vsgpt",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Conversation session identifier",
				Value: "vsgptctl",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the store status",
				Action: runStatus,
			},
			{
				Name:      "search",
				Usage:     "Retrieve passages for a query",
				ArgsUsage: "<query>",
				Action:    runSearch,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about the documents",
				ArgsUsage: "<question>",
				Action:    runAsk,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func connect(cmd *cli.Command) (vsgpt.Service, *nats.Conn, error) {
	nc, err := nats.Connect(cmd.String("nats"),
		nats.Name("VSGPT Client"),
	)

	if err != nil {
		return nil, nil, err
	}

	endpoints := natsT.MakeEndpoints(nc, cmd.String("prefix"))
	svc := vsgpt.ProxyMiddleware(endpoints)(nil)

	return svc, nc, nil
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	svc, nc, err := connect(cmd)
	if err != nil {
		return err
	}
	defer nc.Close()

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Version:        %s\n", status.Version)
	fmt.Printf("Last trained:   %s\n", status.LastTrained)
	fmt.Printf("Files ingested: %d\n", status.FilesIngested)
	fmt.Printf("Ready:          %t\n", status.Ready)

	return nil
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return errors.New("query is required")
	}

	svc, nc, err := connect(cmd)
	if err != nil {
		return err
	}
	defer nc.Close()

	docs, err := svc.SearchDocuments(ctx, query)
	if err != nil {
		return err
	}

	for i, doc := range docs {
		fmt.Printf("#%d [%s]\n%s\n\n", i+1, doc.Source(), doc.Content)
	}

	return nil
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	question := cmd.Args().First()
	if question == "" {
		return errors.New("question is required")
	}

	svc, nc, err := connect(cmd)
	if err != nil {
		return err
	}
	defer nc.Close()

	events, err := svc.Ask(ctx, question, cmd.String("session"))
	if err != nil {
		return err
	}

	var sources []vector.Document

	for event := range events {
		switch e := event.(type) {
		case chain.TextFragment:
			fmt.Print(e.Content)
		case chain.SourceBatch:
			sources = e.Documents
		case chain.Failure:
			return e.Err
		}
	}

	fmt.Println()

	for i, doc := range sources {
		fmt.Printf("\nSource #%d [%s]\n%s\n", i+1, doc.Source(), doc.Content)
	}

	return nil
}
