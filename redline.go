// Package redline reviews legal contracts: it derives a paragraph-
// addressable structural model from a word-processing container and rebuilds
// the container with accepted per-paragraph revisions applied, as both a
// clean final version and a tracked-changes version with attribution.
//
// Risk detection, LLM prompting, session storage, and HTTP surfaces are the
// surrounding application's concern; they call in with paragraph ids and
// replacement text and read back the model.
package redline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/redline/config"
	"github.com/dgallion1/redline/docmodel"
	"github.com/dgallion1/redline/internal/cache"
	"github.com/dgallion1/redline/parser"
	"github.com/dgallion1/redline/revise"
)

// Service ties the parser, revision engine, and model cache together. It is
// safe for concurrent use across documents: every parse and rebuild runs
// against its own state.
type Service struct {
	cfg    config.Config
	log    *slog.Logger
	models *cache.Store
	engine *revise.Engine
}

// New builds a Service. A nil logger falls back to slog.Default.
func New(cfg config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	engine := revise.NewEngine(cfg.Author, log)
	engine.Verify = cfg.VerifyOutput
	return &Service{
		cfg:    cfg,
		log:    log,
		models: cache.NewStore(cfg.CacheTTL),
		engine: engine,
	}
}

// Parse returns the document model for a container, reusing the cached
// model while the container on disk is unchanged.
func (s *Service) Parse(path string) (*docmodel.DocumentModel, error) {
	fp, err := cache.FingerprintFile(path)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	// Opportunistic TTL sweep; the library has no background goroutine to
	// run it on a ticker.
	s.models.Cleanup()
	if m := s.models.Get(path, fp); m != nil {
		s.log.Debug("model cache hit", "path", path)
		return m, nil
	}

	b := &parser.Builder{Log: s.log, CaptionMax: s.cfg.CaptionMaxLen}
	m, err := b.Parse(path)
	if err != nil {
		return nil, err
	}
	s.models.Put(path, fp, m)
	s.log.Info("parsed document", "path", path,
		"blocks", len(m.Content), "sections", len(m.Sections))
	return m, nil
}

// ExportResult reports one export: the three generated files plus the
// change counts.
type ExportResult struct {
	CleanPath     string `json:"clean_path"`
	TrackedPath   string `json:"tracked_path"`
	ManifestPath  string `json:"manifest_path"`
	ChangesMade   int    `json:"changes_made"`
	RevisionCount int    `json:"revision_count"`
	Degraded      bool   `json:"degraded,omitempty"`
}

// Export generates the clean container, the tracked-changes container, and
// the change manifest for one reviewed document.
func (s *Service) Export(src string, revisions []docmodel.Revision, outDir string, info revise.ManifestInfo) (*ExportResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res := &ExportResult{
		CleanPath:    filepath.Join(outDir, "clean.docx"),
		TrackedPath:  filepath.Join(outDir, "tracked.docx"),
		ManifestPath: filepath.Join(outDir, "manifest.md"),
	}
	for _, r := range revisions {
		if r.Accepted {
			res.RevisionCount++
		}
	}

	clean, err := s.engine.RebuildClean(src, res.CleanPath, revisions)
	if err != nil {
		return nil, fmt.Errorf("clean rebuild: %w", err)
	}
	tracked, err := s.engine.RebuildTracked(src, res.TrackedPath, revisions)
	if err != nil {
		return nil, fmt.Errorf("tracked rebuild: %w", err)
	}
	res.ChangesMade = clean.ChangesMade
	res.Degraded = tracked.Degraded

	manifest := revise.Manifest(revisions, info, time.Now())
	if err := writeFileAtomic(res.ManifestPath, []byte(manifest)); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	s.log.Info("exported documents", "source", src,
		"changes", res.ChangesMade, "degraded", res.Degraded)
	return res, nil
}

// writeFileAtomic places data with the same temp-then-rename discipline the
// container rebuilds use, so an export never leaves a partial file.
func writeFileAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".manifest-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
