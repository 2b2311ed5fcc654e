// Command awooidx loads an Awoo-format index file and runs the fixed
// benchmark query set against it, reporting load time, index size, and
// per-query latency.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/awooidx/awooidx"
	"github.com/awooidx/awooidx/activeindex"
	"github.com/awooidx/awooidx/blobstore"
	minioblob "github.com/awooidx/awooidx/blobstore/minio"
	"github.com/awooidx/awooidx/blobstore/s3"
	"github.com/awooidx/awooidx/core"
)

// benchmarkQuery is one fixed query run repeatedly to report latency.
type benchmarkQuery struct {
	name string
	tags []core.TagId
	want int // expected result count, -1 if not pinned
}

var benchmarkQueries = []benchmarkQuery{
	{
		name: "five-tag-conjunction",
		tags: []core.TagId{470575, 212816, 13197, 29, 1283444},
		want: 17,
	},
	{
		name: "two-tag-conjunction",
		tags: []core.TagId{1574450, 1665885},
		want: -1,
	},
}

const repeatCount = 20

func main() {
	if err := run(); err != nil {
		slog.Error("awooidx failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <index-uri>", os.Args[0])
	}
	uri := os.Args[1]

	logger := awooidx.NewTextLogger(slog.LevelInfo)
	ctx := context.Background()

	store, name, err := resolveStore(ctx, uri, logger)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", uri, err)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("opening %q: %w", name, err)
	}
	defer blob.Close()

	var lastPct = -1
	progress := func(done, total int) {
		if total == 0 {
			return
		}
		pct := done * 100 / total
		if pct != lastPct {
			lastPct = pct
			slog.Info("loading", "tags_done", done, "tags_total", total, "percent", pct)
		}
	}

	start := time.Now()
	eng, err := awooidx.Load(ctx, blob,
		awooidx.WithLogger(logger),
		awooidx.WithLoadProgress(progress),
	)
	if err != nil {
		return fmt.Errorf("loading %q: %w", name, err)
	}
	loadDuration := time.Since(start)

	ix := eng.Index()
	slog.Info("index loaded",
		"duration", loadDuration,
		"size", humanize.Bytes(uint64(blob.Size())),
		"tags", ix.TagCount(),
		"dense_tags", ix.DenseTagCount(),
		"max_id", ix.MaxID(),
	)

	for _, q := range benchmarkQueries {
		if err := runBenchmark(ctx, eng, q); err != nil {
			return fmt.Errorf("benchmark %q: %w", q.name, err)
		}
	}

	return nil
}

func runBenchmark(ctx context.Context, eng *awooidx.Engine, q benchmarkQuery) error {
	var total time.Duration
	var lastResult []core.ItemId

	for i := 0; i < repeatCount; i++ {
		start := time.Now()
		result, err := eng.Search(ctx, q.tags)
		if err != nil {
			return err
		}
		total += time.Since(start)
		lastResult = result
	}

	avg := total / repeatCount
	if q.want >= 0 && len(lastResult) != q.want {
		return fmt.Errorf("expected %d results, got %d", q.want, len(lastResult))
	}

	slog.Info("benchmark complete",
		"query", q.name,
		"tags", len(q.tags),
		"results", len(lastResult),
		"runs", repeatCount,
		"avg_latency", avg,
		"total", total,
	)
	return nil
}

// resolveStore interprets uri under one of four schemes:
//
//	/path/to/dir/file.awoo   a bare local path
//	s3://bucket/key          an S3 object
//	minio://bucket/key       a MinIO (or S3-compatible) object
//	active://path/to/pointer.json  a local activeindex pointer naming
//	                          the blob to actually open
//
// It returns the BlobStore to open name through and the name itself.
func resolveStore(ctx context.Context, uri string, logger *awooidx.Logger) (blobstore.BlobStore, string, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := splitBucketKey(strings.TrimPrefix(uri, "s3://"))
		if err != nil {
			return nil, "", err
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("loading AWS config: %w", err)
		}
		client := awss3.NewFromConfig(cfg)
		return s3.NewStore(client, bucket, ""), key, nil

	case strings.HasPrefix(uri, "minio://"):
		bucket, key, err := splitBucketKey(strings.TrimPrefix(uri, "minio://"))
		if err != nil {
			return nil, "", err
		}
		endpoint := os.Getenv("AWOOIDX_MINIO_ENDPOINT")
		if endpoint == "" {
			return nil, "", errors.New("AWOOIDX_MINIO_ENDPOINT must be set for minio:// URIs")
		}
		client, err := miniogo.New(endpoint, &miniogo.Options{
			Creds: credentials.NewStaticV4(
				os.Getenv("AWOOIDX_MINIO_ACCESS_KEY"),
				os.Getenv("AWOOIDX_MINIO_SECRET_KEY"),
				"",
			),
			Secure: os.Getenv("AWOOIDX_MINIO_SECURE") == "true",
		})
		if err != nil {
			return nil, "", fmt.Errorf("creating minio client: %w", err)
		}
		return minioblob.NewStore(client, bucket, ""), key, nil

	case strings.HasPrefix(uri, "active://"):
		pointerPath := strings.TrimPrefix(uri, "active://")
		resolver := activeindex.NewLocalFile(pointerPath)
		ptr, err := resolver.Resolve(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("resolving active pointer: %w", err)
		}
		logger.LogResolve(ctx, ptr.Path, ptr.Version, nil)
		dir, file := path.Split(ptr.Path)
		return blobstore.NewLocalStore(dir), file, nil

	default:
		dir, file := path.Split(uri)
		if dir == "" {
			dir = "."
		}
		return blobstore.NewLocalStore(dir), file, nil
	}
}

func splitBucketKey(s string) (bucket, key string, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected bucket/key, got %q", s)
	}
	return parts[0], parts[1], nil
}
