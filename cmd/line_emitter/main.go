// line_emitter replays text files line by line as OTLP log records, so a running
// tally OTLP receiver can be exercised without real devices.
package main

import (
	"bufio"
	"context"
	"fmt"
	"github.com/alexflint/go-arg"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/sync/errgroup"
	"os"
	"time"
)

type args struct {
	Endpoint string        `arg:"--endpoint" default:"localhost:4317" help:"OTLP gRPC receiver"`
	Delay    time.Duration `arg:"--delay" default:"0s" help:"pause between lines"`
	Files    []string      `arg:"positional,required" help:"files to replay"`
}

func main() {
	var a args
	arg.MustParse(&a)
	ctx := context.Background()

	res, err := newResource()
	if err != nil {
		panic(err)
	}

	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(a.Endpoint), otlploggrpc.WithInsecure())
	if err != nil {
		panic("failed to initialize exporter")
	}

	lp := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(
			log.NewBatchProcessor(logExporter),
		),
	)
	defer lp.Shutdown(ctx)

	g, gCtx := errgroup.WithContext(ctx)
	for _, path := range a.Files {
		path := path
		g.Go(func() error {
			return replay(gCtx, lp, path, a.Delay)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := lp.ForceFlush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("Lines have been sent to the OTLP receiver.")
}

func replay(ctx context.Context, lp *log.LoggerProvider, path string, delay time.Duration) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	logger := otelslog.NewLogger("line-emitter", otelslog.WithLoggerProvider(lp))
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.InfoContext(ctx, scanner.Text(), "file", path)
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func newResource() (*resource.Resource, error) {
	return resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName("line-emitter"),
			semconv.ServiceVersion("0.1.0"),
		))
}
