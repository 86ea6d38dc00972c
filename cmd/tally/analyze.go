package main

import (
	"context"
	"fmt"
	"github.com/Avi18971911/Tally/internal/config"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"go.uber.org/zap"
	"time"
)

const shutdownTimeout = 10 * time.Second

// analyze is the one-shot path: load, tag, write the rich report, exit.
func analyze(cfg config.Config, cmd *AnalyzeCmd, logger *zap.Logger) error {
	opts := sessionOptions(cfg)
	if cmd.Out != "" {
		opts.OutputDir = cmd.Out
	}
	opts.Keywords = append(opts.Keywords, cmd.Keywords...)

	session, err := sessionService.NewSession(
		opts,
		sessionService.Dependencies{
			RichReport: exportService.NewRichReportExporter(logger),
			BatchSink:  exportService.NewStreamReportExporter(logger),
			Cache:      newMatchCache(logger),
		},
		logger,
	)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := session.Close(ctx); err != nil {
			logger.Error("Failed to close session", zap.Error(err))
		}
	}()

	ctx := context.Background()
	info, err := session.LoadFile(ctx, sessionService.DefaultFileSourceId, cmd.File)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", cmd.File, err)
	}
	result, err := session.Export(ctx, info.Id)
	if err != nil {
		return err
	}
	logger.Info(
		"Report written",
		zap.String("path", result.Path),
		zap.Int("records", result.Records),
		zap.Int64("discarded", info.Discarded),
	)
	return nil
}
