package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"outbreak-mcp/internal/epi"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store keeps imported datasets in memory and persists each one as a JSONL file in the
// cache directory: a header line with the metadata followed by one line per subject.
type Store struct {
	mu       sync.RWMutex
	dir      string
	datasets map[string]*Dataset
}

// NewStore creates an empty store backed by dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:      dir,
		datasets: make(map[string]*Dataset),
	}
}

type headerLine struct {
	Kind string `json:"kind"`
	*Dataset
}

type subjectLine struct {
	Kind string `json:"kind"`
	epi.Subject
}

// Put registers a dataset, assigning an ID and import time when missing.
func (s *Store) Put(ds *Dataset) string {
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	if ds.Layout == "" {
		ds.Layout = epi.CaseControl
	}
	if ds.ImportedAt.IsZero() {
		ds.ImportedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.datasets[ds.ID] = ds
	s.mu.Unlock()
	return ds.ID
}

// Get returns the dataset with the given ID.
func (s *Store) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return ds, nil
}

// List returns all datasets ordered by import time, newest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.datasets))
	for _, ds := range s.datasets {
		infos = append(infos, ds.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].ImportedAt.Equal(infos[j].ImportedAt) {
			return infos[i].ImportedAt.After(infos[j].ImportedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Delete forgets a dataset and removes its cache file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.datasets[id]
	delete(s.datasets, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove dataset file: %w", err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.jsonl", id))
}

// Save persists one dataset atomically (temp file + rename).
func (s *Store) Save(id string) error {
	ds, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := s.path(id)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp dataset file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	fail := func(err error) error {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := encoder.Encode(headerLine{Kind: "dataset", Dataset: ds}); err != nil {
		return fail(fmt.Errorf("failed to encode dataset header: %w", err))
	}
	for _, subj := range ds.Subjects {
		if err := encoder.Encode(subjectLine{Kind: "subject", Subject: subj}); err != nil {
			return fail(fmt.Errorf("failed to encode subject: %w", err))
		}
	}

	if err := writer.Flush(); err != nil {
		return fail(fmt.Errorf("failed to flush writer: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename dataset file: %w", err)
	}

	log.Info().Str("dataset", id).Int("subjects", len(ds.Subjects)).Msg("Dataset saved to cache")
	return nil
}

// Load reads one dataset from its cache file.
func (s *Store) Load(id string) error {
	file, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
		}
		return fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var ds *Dataset
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var probe struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			log.Warn().Err(err).Str("dataset", id).Msg("Skipping invalid JSON line in dataset file")
			continue
		}

		switch probe.Kind {
		case "dataset":
			h := headerLine{Dataset: &Dataset{}}
			if err := json.Unmarshal(line, &h); err != nil {
				return fmt.Errorf("failed to decode dataset header: %w", err)
			}
			ds = h.Dataset
		case "subject":
			if ds == nil {
				return fmt.Errorf("dataset file %s has subjects before its header", id)
			}
			var sl subjectLine
			if err := json.Unmarshal(line, &sl); err != nil {
				log.Warn().Err(err).Str("dataset", id).Msg("Skipping invalid subject line")
				continue
			}
			ds.Subjects = append(ds.Subjects, sl.Subject)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading dataset file: %w", err)
	}
	if ds == nil {
		return fmt.Errorf("dataset file %s has no header", id)
	}

	ds.ID = id
	s.mu.Lock()
	s.datasets[id] = ds
	s.mu.Unlock()

	log.Info().Str("dataset", id).Int("subjects", len(ds.Subjects)).Msg("Loaded dataset from cache")
	return nil
}

// LoadAll reads every dataset file in the cache directory. Unreadable files are logged
// and skipped.
func (s *Store) LoadAll() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.jsonl"))
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache directory: %w", err)
	}

	loaded := 0
	for _, m := range matches {
		id := strings.TrimSuffix(filepath.Base(m), ".jsonl")
		if err := s.Load(id); err != nil {
			log.Warn().Err(err).Str("path", m).Msg("Skipping unreadable dataset file")
			continue
		}
		loaded++
	}
	return loaded, nil
}
