package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"umap-export/internal/archive"
	"umap-export/internal/assetexport"
	"umap-export/internal/config"
	"umap-export/internal/debug"
	"umap-export/internal/download"
	"umap-export/internal/dump"
	"umap-export/internal/env"
	"umap-export/internal/logger"
	"umap-export/internal/outfs"
	"umap-export/internal/scene"
	"umap-export/internal/world"
)

// progressEvery is how often the pending export count is logged while waiting.
const progressEvery = 5 * time.Second

// downloadDir holds downloaded dumps, relative to the output directory.
const downloadDir = "downloads"

// session is the configuration and logger shared by the subcommands.
type session struct {
	cfg    config.Config
	log    *slog.Logger
	closer io.Closer
}

func (s *session) Close() error {
	return s.closer.Close()
}

// loadSession reads .env, the config file and UMAP_* variables, in increasing
// precedence, then opens the logger.
func loadSession(configPath string, stderr io.Writer) (*session, error) {
	if err := env.Load(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.New(logger.Options{Console: stderr, Dir: cfg.LogDir, Level: level})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, closer: closer}, nil
}

// openSource opens the dump source, downloading it first when it is a URL.
func (s *session) openSource(ctx context.Context) (fs.FS, io.Closer, error) {
	source := s.cfg.DumpSource
	if download.IsURL(source) {
		s.log.Info("downloading dump", "url", source)
		saved, err := download.Fetch(ctx, source, filepath.Join(s.cfg.OutputDir, downloadDir))
		if err != nil {
			return nil, nil, err
		}
		s.log.Info("downloaded dump", "file", saved)
		source = saved
	}
	return archive.Open(source)
}

func export(configPath string, stderr io.Writer) error {
	s, err := loadSession(configPath, stderr)
	if err != nil {
		return err
	}
	defer s.Close()
	cfg := s.cfg
	if err := cfg.Validate(); err != nil {
		s.log.Error("invalid config", "file", configPath, "err", err)
		return err
	}

	src, srcCloser, err := s.openSource(context.Background())
	if err != nil {
		return err
	}
	defer srcCloser.Close()
	provider := dump.New(src)

	out, err := outfs.NewOS(cfg.OutputDir)
	if err != nil {
		return err
	}
	sched, err := assetexport.New(out, provider, provider, s.log, assetexport.Options{
		Workers:               cfg.Workers,
		ImageFormat:           cfg.ImageFormat,
		PreferBlockCompressed: cfg.ExportToDDSWhenPossible,
	})
	if err != nil {
		return err
	}
	serializer := scene.NewSerializer(out, cfg.IndentJSON)
	exporter := world.New(provider, sched, serializer, debug.NewMemory(s.log), s.log, world.Options{
		ReadMaterials:             cfg.ReadMaterials,
		ExportBuildingFoundations: cfg.ExportBuildingFoundations,
	})

	start := time.Now()
	visited := world.NewVisited()
	doc, err := exporter.ExportWorld(cfg.ExportPackage, visited)
	if err != nil {
		s.log.Error("export failed", "package", cfg.ExportPackage, "err", err)
		// Jobs already queued still finish so their files are not left partial.
		sched.Wait()
		return err
	}
	stats := waitForExports(sched, s.log)
	if err := serializer.WriteRoot(doc.Package); err != nil {
		return err
	}
	s.log.Info("export finished",
		"world", doc.Package,
		"worlds", len(visited.Paths()),
		"submitted", stats.Submitted,
		"written", stats.Written,
		"skipped", stats.Skipped,
		"contended", stats.Contended,
		"failed", stats.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

// waitForExports blocks until the scheduler drains, logging progress.
func waitForExports(sched *assetexport.Scheduler, log *slog.Logger) assetexport.Stats {
	done := make(chan assetexport.Stats, 1)
	go func() { done <- sched.Wait() }()
	ticker := time.NewTicker(progressEvery)
	defer ticker.Stop()
	for {
		select {
		case stats := <-done:
			return stats
		case <-ticker.C:
			log.Info("waiting for asset exports", "pending", sched.Pending())
		}
	}
}

func list(configPath, pattern string, stdout, stderr io.Writer) error {
	s, err := loadSession(configPath, stderr)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.cfg.DumpSource == "" {
		return fmt.Errorf("%w: dump_source is empty", config.ErrInvalid)
	}

	var match func(string) bool
	if pattern != "" {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("bad -match pattern: %w", err)
		}
		match = g.Match
	}

	src, srcCloser, err := s.openSource(context.Background())
	if err != nil {
		return err
	}
	defer srcCloser.Close()
	worlds, err := dump.New(src).Worlds(match)
	if err != nil {
		return err
	}
	for _, w := range worlds {
		fmt.Fprintln(stdout, w)
	}
	s.log.Debug("listed worlds", "count", len(worlds))
	return nil
}

func unpack(args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: umap unpack <zip> <dir>")
	}
	extracted, err := archive.Unzip(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "extracted %d files to %s\n", len(extracted), args[1])
	return nil
}
