package main

import (
	"fmt"
	"github.com/Avi18971911/Tally/internal/config"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
	"os"
)

const matchCacheEntries = 100_000

type AnalyzeCmd struct {
	File     string   `arg:"--file,required" help:"log file to replay"`
	Out      string   `arg:"--out" help:"directory for the report, defaults to output_dir"`
	Keywords []string `arg:"--keyword,separate" help:"extra keyword, repeatable"`
}

type args struct {
	Config  string      `arg:"--config,env:TALLY_CONFIG" help:"path to config.toml"`
	Debug   bool        `arg:"--debug,env:TALLY_DEBUG" help:"development logging"`
	Analyze *AnalyzeCmd `arg:"subcommand:analyze" help:"load a file, export its report and exit"`
}

func (args) Description() string {
	return "tally tags log lines with keywords and exports them as spreadsheets"
}

func main() {
	var a args
	arg.MustParse(&a)

	logger, err := newLogger(a.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(a.Config)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if a.Analyze != nil {
		if err := analyze(cfg, a.Analyze, logger); err != nil {
			logger.Fatal("Analysis failed", zap.Error(err))
		}
		return
	}
	if err := serve(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func sessionOptions(cfg config.Config) sessionService.Options {
	return sessionService.Options{
		OutputDir: cfg.OutputDir,
		Threshold: cfg.Threshold,
		Report: exportService.ReportOptions{
			ContextRadius:  cfg.ContextRadius,
			LabelMaxLength: cfg.LabelMaxLength,
		},
		KeywordScope: cfg.KeywordScope,
		Keywords:     cfg.Keywords,
	}
}

func newMatchCache(logger *zap.Logger) keywordService.MatchCache {
	cache, err := keywordService.NewMatchCache(matchCacheEntries)
	if err != nil {
		logger.Warn("Running without a match cache", zap.Error(err))
		return nil
	}
	return cache
}
