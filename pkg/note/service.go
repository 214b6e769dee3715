package note

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/quicknote/pkg/preferences"
)

// Exporter writes a rendered copy of the note somewhere outside the store.
type Exporter interface {
	Export(content, path string, includeMetadata bool) error
}

// Service saves the note and keeps the Markdown export in sync.
type Service struct {
	store    *Store
	exporter Exporter
	sync     func() preferences.Sync
	logger   *slog.Logger
}

// NewService creates a note service. sync is consulted on every save so
// preference changes take effect without rebuilding the service.
func NewService(store *Store, exporter Exporter, sync func() preferences.Sync, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sync == nil {
		sync = func() preferences.Sync { return preferences.Sync{} }
	}
	return &Service{
		store:    store,
		exporter: exporter,
		sync:     sync,
		logger:   logger.With("component", "note"),
	}
}

// Load returns the current note.
func (s *Service) Load() (string, error) {
	return s.store.Read()
}

// Save writes content to the store and then exports it when Markdown sync is
// enabled. An export failure is returned but the stored note is kept.
func (s *Service) Save(content string) error {
	if err := s.store.Write(content); err != nil {
		return err
	}
	s.logger.Debug("note saved", "bytes", len(content))

	if err := s.export(content); err != nil {
		return fmt.Errorf("note saved but export failed: %w", err)
	}
	return nil
}

// Sync re-exports the stored note.
func (s *Service) Sync() error {
	content, err := s.store.Read()
	if err != nil {
		return err
	}
	return s.export(content)
}

func (s *Service) export(content string) error {
	cfg := s.sync()
	if !cfg.MarkdownEnabled || s.exporter == nil {
		return nil
	}
	if err := s.exporter.Export(content, cfg.MarkdownPath, cfg.IncludeMetadata); err != nil {
		return err
	}
	s.logger.Debug("note exported", "path", cfg.MarkdownPath)
	return nil
}
