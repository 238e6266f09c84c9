package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/railsight/atpdecode/internal/common"
	"github.com/railsight/atpdecode/internal/format"
	"github.com/railsight/atpdecode/internal/report"
	"github.com/railsight/atpdecode/internal/ru"
	"github.com/railsight/atpdecode/internal/streamio"
)

// atpdecoded watches a directory for recordings and decodes each one as
// it appears, writing the decoded output and a session report alongside
// it. Unlike the teacher's ch10d, it carries no HTTP surface: spec.md
// rules out a service layer, so polling a directory replaces the
// request/response loop entirely.

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	InputDir     string        `yaml:"inputDir"`
	OutputDir    string        `yaml:"outputDir"`
	PollInterval time.Duration `yaml:"pollInterval"`
	ResyncBudget int           `yaml:"resyncBudget"`
	OutputFormat string        `yaml:"outputFormat"`
	Concurrency  int           `yaml:"concurrency"`
	Logs         logConfig     `yaml:"logs"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}

	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}

	if cfg.InputDir == "" {
		return cfg, errors.New("no inputDir configured")
	}
	cfg.InputDir = resolvePath(cfg.InputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.InputDir, "decoded")
	} else {
		cfg.OutputDir = resolvePath(cfg.OutputDir)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ResyncBudget <= 0 {
		cfg.ResyncBudget = ru.DefaultResyncBudget
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.OutputDir, "logs")
	} else {
		cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}

func setupLogging(cfg config) error {
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	common.UseRotatingFile(filepath.Join(cfg.Logs.Directory, "atpdecoded.log"), cfg.Logs.MaxSizeMB, cfg.Logs.MaxBackups)
	return nil
}

// seen tracks recording files already decoded this run, so later polls
// don't reprocess them. It is not persisted: after a restart, the first
// poll decodes every file in the input directory again.
type seen map[string]bool

func main() {
	configPath := flag.String("config", "config/atpdecoded.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("output dir: %v", err)
	}
	if err := setupLogging(cfg); err != nil {
		log.Fatalf("setup logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		common.Logf("atpdecoded: shutdown signal received")
		cancel()
	}()

	common.Logf("atpdecoded watching %s every %s", cfg.InputDir, cfg.PollInterval)
	runWatchLoop(ctx, cfg)
	common.Logf("atpdecoded stopped")
}

func runWatchLoop(ctx context.Context, cfg config) {
	processed := seen{}
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, cfg.Concurrency)

	poll := func() {
		entries, err := os.ReadDir(cfg.InputDir)
		if err != nil {
			common.Logf("read input dir: %v", err)
			return
		}
		var wg sync.WaitGroup
		for _, entry := range entries {
			if entry.IsDir() || processed[entry.Name()] {
				continue
			}
			processed[entry.Name()] = true
			name := entry.Name()
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				if err := decodeOne(cfg, filepath.Join(cfg.InputDir, name)); err != nil {
					common.Logf("decode %s: %v", name, err)
				}
			}()
		}
		wg.Wait()
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

func decodeOne(cfg config, path string) error {
	buf, err := streamio.Open(path, false)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	session := ru.NewSession(cfg.ResyncBudget)
	events, summary := session.DecodeAll(buf)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(cfg.OutputDir, base+"."+cfg.OutputFormat)
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer outFile.Close()

	if cfg.OutputFormat == "text" {
		err = format.WriteText(outFile, events)
	} else {
		err = format.WriteJSON(outFile, events)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fingerprint, _, err := common.Sha256OfFile(path)
	if err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}
	rep := report.NewSessionReport(path, fingerprint, summary, events)
	reportPath := filepath.Join(cfg.OutputDir, base+".report.json")
	if err := report.SaveSessionJSON(rep, reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	common.Logf("decoded %s: %s", path, summaryLine(summary))
	return nil
}

func summaryLine(summary ru.Summary) string {
	var errCount int
	for _, n := range summary.ErrorsByKind {
		errCount += n
	}
	return fmt.Sprintf("frames=%d errors=%d resyncs=%d telegrams=%d evictions=%d",
		summary.FramesDecoded, errCount, summary.ResyncsPerformed, summary.TelegramsReassembled, summary.EvictedIncomplete)
}
