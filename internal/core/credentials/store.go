package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/rs/zerolog"
)

// Store persists the session record in two tiers: a process-scoped cache
// and a durable single-line file. Concurrent invocations are not
// coordinated; the last writer wins.
type Store struct {
	path   string
	cache  Cache
	logger zerolog.Logger
}

// NewStore creates a store backed by the file at path
func NewStore(path string, cache Cache, logger zerolog.Logger) *Store {
	if cache == nil {
		cache = &MemoryCache{}
	}
	return &Store{
		path:   path,
		cache:  cache,
		logger: logger.With().Str("component", "credentials").Logger(),
	}
}

// Path returns the durable file location
func (s *Store) Path() string {
	return s.path
}

// Save overwrites the durable file and refreshes the cache
func (s *Store) Save(record models.SessionRecord) error {
	record = record.Trimmed()
	if err := record.Validate(); err != nil {
		return fmt.Errorf("refusing to save incomplete session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	line := strings.Join([]string{
		record.AuthToken,
		record.SiteID,
		record.UserID,
		record.ServerURL,
		record.TLSCertPath,
	}, " ")
	if err := os.WriteFile(s.path, []byte(line), 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	if err := s.cache.Put(record); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Msg("session saved")
	return nil
}

// Load returns the cached session, falling back to the durable file.
// A missing or partial record is reported as absent, never as an error.
func (s *Store) Load() (models.SessionRecord, bool) {
	if record := s.cache.Get().Trimmed(); record.Validate() == nil {
		return record, true
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("unable to read credential file")
		}
		return models.SessionRecord{}, false
	}

	record, ok := parseRecord(string(data))
	if !ok {
		s.logger.Debug().Str("path", s.path).Msg("credential file is incomplete, ignoring")
		return models.SessionRecord{}, false
	}

	if err := s.cache.Put(record); err != nil {
		s.logger.Debug().Err(err).Msg("unable to cache session")
	}
	return record, true
}

// Clear removes the durable file and empties the cache. Failures other
// than a missing file are logged as warnings; Clear never fails.
func (s *Store) Clear() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("unable to remove credential file")
	}
	if err := s.cache.Reset(); err != nil {
		s.logger.Warn().Err(err).Msg("unable to clear cached session")
	}
}

// parseRecord reads "token siteId userId serverUrl [tlsCertPath]".
// The cert path is the remainder of the line so it may contain spaces.
func parseRecord(data string) (models.SessionRecord, bool) {
	fields := strings.Fields(data)
	if len(fields) < 4 {
		return models.SessionRecord{}, false
	}

	record := models.SessionRecord{
		AuthToken: fields[0],
		SiteID:    fields[1],
		UserID:    fields[2],
		ServerURL: fields[3],
	}
	if len(fields) > 4 {
		record.TLSCertPath = strings.Join(fields[4:], " ")
	}

	record = record.Trimmed()
	if record.Validate() != nil {
		return models.SessionRecord{}, false
	}
	return record, true
}
