package main

import (
	"context"
	"errors"
	"fmt"
	archiveService "github.com/Avi18971911/Tally/internal/archive/service"
	"github.com/Avi18971911/Tally/internal/config"
	"github.com/Avi18971911/Tally/internal/control/router"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/client"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/Avi18971911/Tally/internal/source"
	"github.com/elastic/go-elasticsearch/v8"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
	"net"
	"net/http"
	"os/signal"
	"syscall"
)

const otlpSourceId = "otlp"

func serve(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks := []exportService.BatchSink{exportService.NewStreamReportExporter(logger)}
	var archive archiveService.ArchiveService
	if cfg.Elasticsearch.Enabled {
		as, err := newArchive(ctx, cfg.Elasticsearch, logger)
		if err != nil {
			logger.Error("Continuing without the Elasticsearch archive", zap.Error(err))
		} else {
			archive = as
			sinks = append(sinks, as)
		}
	}

	session, err := sessionService.NewSession(
		sessionOptions(cfg),
		sessionService.Dependencies{
			RichReport: exportService.NewRichReportExporter(logger),
			BatchSink:  exportService.NewMultiBatchSink(sinks...),
			Cache:      newMatchCache(logger),
		},
		logger,
	)
	if err != nil {
		return err
	}

	for _, device := range cfg.Devices {
		info, err := session.StartDevice(ctx, device)
		if err != nil {
			logger.Error("Failed to start configured device", zap.String("port", device.Port), zap.Error(err))
			continue
		}
		logger.Info("Started configured device", zap.String("source_id", info.Id), zap.String("port", info.Port))
	}

	httpServer := &http.Server{
		Addr:    cfg.HttpBind,
		Handler: router.CreateRouter(session, archive, logger),
	}

	var grpcServer *grpc.Server
	var listener net.Listener
	if cfg.OtlpBind != "" {
		grpcServer, listener, err = newOtlpReceiver(cfg.OtlpBind, session, logger)
		if err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Join(err, session.Close(closeCtx))
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting control server", zap.String("addr", cfg.HttpBind))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server failed: %w", err)
		}
		return nil
	})
	if grpcServer != nil {
		g.Go(func() error {
			logger.Info("gRPC service started, listening for OpenTelemetry logs", zap.String("addr", cfg.OtlpBind))
			if err := grpcServer.Serve(listener); err != nil {
				return fmt.Errorf("gRPC server failed: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		httpErr := httpServer.Shutdown(shutdownCtx)
		return errors.Join(httpErr, session.Close(shutdownCtx))
	})
	return g.Wait()
}

func newArchive(
	ctx context.Context,
	cfg config.ElasticsearchConfig,
	logger *zap.Logger,
) (*archiveService.ArchiveServiceImpl, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	bs := bootstrapper.NewBootstrapper(es, logger)
	if err := bs.BootstrapElasticsearch(ctx, cfg.Index); err != nil {
		return nil, fmt.Errorf("failed to bootstrap elasticsearch: %w", err)
	}
	ac := client.NewTallyClientImpl(es, client.Wait)
	return archiveService.NewArchiveService(ac, cfg.Index, logger), nil
}

// newOtlpReceiver attaches an OTLP log source to the session and serves it over gRPC.
func newOtlpReceiver(
	bind string,
	session sessionService.Session,
	logger *zap.Logger,
) (*grpc.Server, net.Listener, error) {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", bind, err)
	}
	otlpSource := source.NewOtlpLogSource(otlpSourceId, logger)
	if _, err := session.Attach(otlpSource, ""); err != nil {
		listener.Close()
		return nil, nil, fmt.Errorf("failed to attach OTLP receiver: %w", err)
	}
	srv := grpc.NewServer()
	protoLogs.RegisterLogsServiceServer(srv, otlpSource)
	return srv, listener, nil
}
