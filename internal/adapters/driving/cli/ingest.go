package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest PATH...",
	Short: "Upload documents into the corpus",
	Long: `Upload files, or every supported file under a directory, into the corpus.

Files whose content is already in the corpus are skipped. Hidden files and
directories are ignored.

With --watch, directories are watched after the initial scan and new or
modified files are ingested until interrupted.

Examples:
  docchat ingest report.pdf notes.md
  docchat ingest ~/papers --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching directories for new files")
	rootCmd.AddCommand(ingestCmd)
}

// ingestSummary counts feed outcomes.
type ingestSummary struct {
	ingested int
	chunks   int
	skipped  int
	failed   int
}

func (s *ingestSummary) add(o filesystem.Outcome) {
	switch {
	case o.Err != nil:
		s.failed++
	case o.Skipped:
		s.skipped++
	default:
		s.ingested++
		s.chunks += o.Result.ChunksCount
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	ingest, err := requireIngest(ctx)
	if err != nil {
		return err
	}

	feeder := filesystem.NewFeeder(ingest)
	if err := feeder.Prime(ctx); err != nil {
		logger.Warn("Listing existing documents: %v", err)
	}

	out := cmd.OutOrStdout()
	var summary ingestSummary
	var connectors []*filesystem.Connector
	for _, path := range args {
		conn := filesystem.New(path)
		files, err := conn.Scan(ctx)
		if err != nil {
			fmt.Fprintf(out, "  x %s: %v\n", path, err)
			summary.failed++
			continue
		}
		for _, o := range feeder.FeedAll(ctx, files) {
			printOutcome(out, o)
			summary.add(o)
		}
		if info, statErr := os.Stat(conn.Root()); statErr == nil && info.IsDir() {
			connectors = append(connectors, conn)
		}
	}

	fmt.Fprintf(out, "\nIngested %d documents (%d chunks), %d unchanged, %d failed\n",
		summary.ingested, summary.chunks, summary.skipped, summary.failed)

	if ingestWatch {
		if len(connectors) == 0 {
			return errors.New("--watch needs at least one directory")
		}
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintln(out, "Watching for changes. Press Ctrl+C to stop.")
		var mu sync.Mutex
		return watchDirs(watchCtx, feeder, connectors, func(o filesystem.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			printOutcome(out, o)
		})
	}

	if summary.failed > 0 {
		return fmt.Errorf("%d of %d documents failed", summary.failed,
			summary.ingested+summary.skipped+summary.failed)
	}
	return nil
}

func printOutcome(w io.Writer, o filesystem.Outcome) {
	switch {
	case o.Err != nil:
		fmt.Fprintf(w, "  x %s: %v\n", o.File.Path, o.Err)
	case o.Skipped:
		fmt.Fprintf(w, "  - %s (unchanged)\n", o.File.Path)
	default:
		fmt.Fprintf(w, "  + %s (%d chunks, %s)\n", o.File.Path, o.Result.ChunksCount, o.Result.Duration.Round(time.Millisecond))
	}
}

// watchDirs feeds files from every connector until ctx is done.
func watchDirs(
	ctx context.Context, feeder *filesystem.Feeder, connectors []*filesystem.Connector, report func(filesystem.Outcome),
) error {
	var wg sync.WaitGroup
	for _, conn := range connectors {
		files, err := conn.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watch %s: %w", conn.Root(), err)
		}
		logger.Info("Watching %s", conn.Root())
		wg.Add(1)
		go func() {
			defer wg.Done()
			feeder.Run(ctx, files, report)
		}()
	}
	wg.Wait()
	return nil
}

// startWatch scans dir, ingests anything new and keeps watching it in the
// background. Used by serve.
func startWatch(ctx context.Context, ingest driving.IngestService, dir string) error {
	conn := filesystem.New(dir)
	feeder := filesystem.NewFeeder(ingest)
	if err := feeder.Prime(ctx); err != nil {
		logger.Warn("Listing existing documents: %v", err)
	}

	files, err := conn.Scan(ctx)
	if err != nil {
		return err
	}
	for _, o := range feeder.FeedAll(ctx, files) {
		if o.Err != nil {
			logger.Warn("Ingesting %s: %v", o.File.Path, o.Err)
		}
	}

	changes, err := conn.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("Watching %s", conn.Root())
	go feeder.Run(ctx, changes, nil)
	return nil
}
