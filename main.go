package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/finchat/finchat/api"
	"github.com/finchat/finchat/chat"
	"github.com/finchat/finchat/config"
	"github.com/finchat/finchat/embeddings"
	"github.com/finchat/finchat/ingestion"
	"github.com/finchat/finchat/knowledge"
	"github.com/finchat/finchat/llm"
	"github.com/finchat/finchat/store"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("FINCHAT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// openPermanent connects to Postgres and prepares the permanent knowledge
// store. The caller owns the returned pool.
func openPermanent(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pgxpool.Pool, *store.Postgres, embeddings.Embedder, error) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embedder setup: %w", err)
	}

	pool, err := store.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres connection: %w", err)
	}

	permanent := store.NewPostgres(pool, embedder, logger)
	if err := permanent.EnsureSchema(ctx, cfg.Embeddings.Dimension); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	return pool, permanent, embedder, nil
}

func serveCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	host := flags.String("host", cfg.Server.Host, "bind address")
	port := flags.Int("port", cfg.Server.Port, "listen port")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse serve flags", zap.Error(err))
	}
	cfg.Server.Host = *host
	cfg.Server.Port = *port

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, permanent, embedder, err := openPermanent(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store setup", zap.Error(err))
	}
	defer pool.Close()

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal("llm setup", zap.Error(err))
	}

	manager := knowledge.NewManager(permanent, embedder, logger)
	router := chat.NewRouter(manager, llmClient, chat.Config{
		TopK:             cfg.Chat.TopK,
		SummaryMaxLength: cfg.Chat.SummaryMaxLength,
		MCQNumQuestions:  cfg.Chat.MCQNumQuestions,
		HistoryTurns:     cfg.Chat.HistoryTurns,
	}, logger)

	server := api.NewServer(manager, router, cfg, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
}

func ingestCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := flags.String("path", "", "a PDF, CSV, or XLSX document, or a directory of them")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse ingest flags", zap.Error(err))
	}
	if *path == "" {
		logger.Fatal("ingest requires --path")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, permanent, _, err := openPermanent(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store setup", zap.Error(err))
	}
	defer pool.Close()

	coordinator, err := ingestion.NewCoordinator(permanent, cfg.Chunking.ChunkSize, cfg.Chunking.Overlap(), logger)
	if err != nil {
		logger.Fatal("coordinator setup", zap.Error(err))
	}

	files, err := collectDocuments(*path)
	if err != nil {
		logger.Fatal("collect documents", zap.Error(err))
	}
	if len(files) == 0 {
		logger.Fatal("no supported documents found", zap.String("path", *path))
	}

	for _, file := range files {
		payload, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("read document", zap.String("path", file), zap.Error(err))
		}
		doc, err := coordinator.Ingest(ctx, payload, filepath.Base(file))
		if err != nil {
			logger.Error("ingestion failed", zap.String("filename", file), zap.Error(err))
			continue
		}
		fmt.Printf("ingested %s: %d chunks, %d words\n", doc.Filename, doc.Metadata.TotalChunks, doc.Metadata.TotalWords)
	}
}

// collectDocuments resolves path to the supported documents beneath it.
// A single file is returned as-is; a directory is walked, skipping
// unsupported extensions.
func collectDocuments(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if _, kindErr := ingestion.DetectKind(p); kindErr == nil {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func chatCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	query := flags.String("query", "", "question to ask about the ingested documents")
	strategy := flags.String("strategy", "", "force a strategy: answer, summarize, or quiz")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse chat flags", zap.Error(err))
	}

	if strings.TrimSpace(*query) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*query = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatal("read question", zap.Error(err))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, permanent, embedder, err := openPermanent(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store setup", zap.Error(err))
	}
	defer pool.Close()

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal("llm setup", zap.Error(err))
	}

	manager := knowledge.NewManager(permanent, embedder, logger)
	router := chat.NewRouter(manager, llmClient, chat.Config{
		TopK:             cfg.Chat.TopK,
		SummaryMaxLength: cfg.Chat.SummaryMaxLength,
		MCQNumQuestions:  cfg.Chat.MCQNumQuestions,
		HistoryTurns:     cfg.Chat.HistoryTurns,
	}, logger)

	resp := router.Route(ctx, chat.QueryContext{
		Query:    *query,
		Override: chat.Strategy(*strategy),
	})

	fmt.Println(resp.Text)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for idx, source := range resp.Sources {
			name := source.Metadata["filename"]
			if name == "" {
				name = source.Type
			}
			fmt.Printf("%d. %s (relevance %.2f)\n", idx+1, name, source.Relevance)
		}
	}
}

func clearCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse clear flags", zap.Error(err))
	}

	if !*confirmed {
		fmt.Print("This will permanently delete all ingested documents and chunks. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatal("read confirmation", zap.Error(err))
			}
			fmt.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			fmt.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connection", zap.Error(err))
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "TRUNCATE chunks, documents"); err != nil {
		logger.Fatal("truncate tables", zap.Error(err))
	}
	fmt.Println("permanent knowledge base cleared")
}

func printUsage() {
	fmt.Println("Usage: finchat <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the HTTP API server")
	fmt.Println("  ingest   Ingest a document or directory into the permanent knowledge base (--path)")
	fmt.Println("  chat     Ask a one-off question against the permanent knowledge base")
	fmt.Println("  clear    Remove all documents and chunks from the permanent knowledge base")
}
