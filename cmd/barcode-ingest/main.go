// Command barcode-ingest processes gzipped supplier availability feeds and
// restocks matching product variants. Feeds are one EAN-13 barcode per line;
// a barcode counts as confirmed only when it appears in at least two feeds,
// which filters out single-supplier noise and malformed scans.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/evostore/storefront-api/internal/domain/loyalty"
	"github.com/evostore/storefront-api/internal/postgres"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 10_000_000
)

// feedResult holds candidate barcodes found in a single feed during pass 2.
type feedResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
		restockQty  int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing barcodefeedN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&restockQty, "restock-qty", 10, "units to add per confirmed barcode")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if restockQty <= 0 {
		slog.Error("restock quantity must be positive", slog.Int("restock_qty", restockQty))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, restockQty); err != nil {
		slog.Error("barcode ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("barcode ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, restockQty int) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("barcodefeed%d.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: Build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Find barcodes confirmed by 2+ feeds.
	slog.Info("pass 2: finding confirmed barcodes")

	confirmed, err := findConfirmedBarcodes(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed barcodes")
	}

	slog.Info("confirmed barcodes found", slog.Int("count", len(confirmed)))

	if len(confirmed) == 0 {
		slog.Info("no confirmed barcodes to restock")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := applyRestocks(ctx, pool, confirmed, restockQty); err != nil {
		return errors.Wrap(err, "apply restocks")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFeed(ctx, path, func(barcode string) {
			if loyalty.ValidEAN13(barcode) {
				filter.AddString(barcode)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("feed", idx+1),
						slog.Uint64("barcodes", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_barcodes", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedBarcodes re-streams each feed and checks barcodes against OTHER
// feeds' bloom filters. A barcode is confirmed if it appears in 2 or more feeds.
func findConfirmedBarcodes(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]feedResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(findCandidatesInFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all feeds.
	merged := make(map[string]uint)
	for _, r := range results {
		for barcode, mask := range r.candidates {
			merged[barcode] |= mask
		}
	}

	// Keep barcodes appearing in 2+ feeds.
	var confirmed []string
	for barcode, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, barcode)
		}
	}

	return confirmed, nil
}

func findCandidatesInFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []feedResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFeed(ctx, path, func(barcode string) {
			if !loyalty.ValidEAN13(barcode) {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("barcodes", count),
				)
			}

			// Check if this barcode appears in any OTHER feed's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(barcode) {
					candidates[barcode] |= feedBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_barcodes", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = feedResult{candidates: candidates}
		return nil
	}
}

// streamGzFeed opens a gzip-compressed feed and calls fn for each line.
func streamGzFeed(ctx context.Context, path string, fn func(barcode string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// applyRestocks adds restockQty units of stock to every catalogued variant
// whose barcode was confirmed. Barcodes without a matching variant are counted
// and reported but not treated as errors; feeds routinely cover more of the
// supplier's range than the store carries.
func applyRestocks(ctx context.Context, pool *pgxpool.Pool, barcodes []string, restockQty int) error {
	slog.Info("applying restocks", slog.Int("count", len(barcodes)), slog.Int("qty_each", restockQty))

	const restockSQL = `UPDATE product_variants SET stock = stock + $2 WHERE barcode = $1`

	var restocked, unknown int
	for i, barcode := range barcodes {
		tag, err := pool.Exec(ctx, restockSQL, barcode, restockQty)
		if err != nil {
			return errors.Wrapf(err, "restock barcode %s", barcode)
		}
		if tag.RowsAffected() > 0 {
			restocked++
		} else {
			unknown++
		}

		if (i+1)%100 == 0 || i+1 == len(barcodes) {
			slog.Info("restock progress", slog.Int("processed", i+1), slog.Int("total", len(barcodes)))
		}
	}

	slog.Info("restock summary",
		slog.Int("restocked", restocked),
		slog.Int("unknown_barcodes", unknown),
	)

	return nil
}
