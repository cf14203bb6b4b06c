package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/config"
	"github.com/enrell/boogle/internal/realtime"
)

// Serve opens the real-time controller over an existing index directory
// and runs an interactive REPL: each input line is a query, `:add
// <text>` inserts a document into the RAM index, and CTRL-C triggers a
// graceful flush-then-exit.
func Serve(cfg *config.Config, logger *zap.Logger) error {
	stopwords, err := config.LoadStopwords(cfg.Analysis.StopwordsFile)
	if err != nil {
		return err
	}
	analyzer := analysis.New(analysis.WithTermLenBounds(cfg.Analysis.MinTermLen, cfg.Analysis.MaxTermLen))

	controller, err := realtime.Open(cfg.Paths.IndexDir, analyzer, logger,
		realtime.WithDiskBM25Params(cfg.BM25.DiskK1, cfg.BM25.DiskB),
		realtime.WithRAMBM25Params(cfg.BM25.RAMK1, cfg.BM25.RAMB),
		realtime.WithStopwords(stopwords),
	)
	if err != nil {
		return fmt.Errorf("cmd: open real-time controller: %w", err)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		<-sigCh
		logger.Info("Shutdown requested, flushing RAM index before exit")

		flushed := make(chan error, 1)
		go func() { flushed <- controller.Flush() }()

		select {
		case err := <-flushed:
			if err != nil {
				logger.Error("Flush failed during shutdown", zap.Error(err))
			}
		case <-time.After(30 * time.Second):
			logger.Warn("Flush grace period expired, shutting down anyway")
		}

		if err := controller.Close(); err != nil {
			logger.Error("Close failed during shutdown", zap.Error(err))
		}
		close(done)
	}()

	logger.Info("Serving queries. Type a query and press Enter, ':add <text>' to insert a document, or Ctrl-C to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":add ") {
			content := strings.TrimPrefix(line, ":add ")
			docID, err := controller.AddDocument(content, "")
			if err != nil {
				logger.Error("Add document failed", zap.Error(err))
				continue
			}
			fmt.Println("added doc", docID)
			continue
		}

		hits := controller.Search(line, 10)
		for i, h := range hits {
			fmt.Println(strconv.Itoa(i+1)+".", h.BookID, "doc", h.DocID, "score", h.Score)
		}
	}

	<-done
	return nil
}
