// Package csvstore implements the flat-file persistence layer: one CSV per
// top-level collection plus per-issue CSVs for comments, history and
// attachment metadata. All mutation goes through a single store-level lock,
// since every write is a whole-file rewrite.
package csvstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

type Store struct {
	dir string
	log zerolog.Logger

	mu     sync.RWMutex
	issues []models.Issue
	loaded bool

	watcher *fsnotify.Watcher
}

// Open prepares the data directory tree and starts watching issues.csv so the
// in-memory cache is dropped when the file is edited outside the process.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	s := &Store{dir: dir, log: log}
	for _, d := range []string{dir, s.commentsDir(), s.historyDir(), s.attachmentsDir(), s.filesDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	s.watcher = w
	go s.watch()
	return s, nil
}

func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) watch() {
	issuesPath := filepath.Clean(s.issuesPath())
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != issuesPath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.mu.Lock()
				s.loaded = false
				s.mu.Unlock()
				s.log.Debug().Str("op", ev.Op.String()).Msg("issues.csv changed on disk, cache invalidated")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("data dir watcher error")
		}
	}
}

func (s *Store) issuesPath() string      { return filepath.Join(s.dir, "issues.csv") }
func (s *Store) usersPath() string       { return filepath.Join(s.dir, "users.csv") }
func (s *Store) hospitalsPath() string   { return filepath.Join(s.dir, "hospitals.csv") }
func (s *Store) teamPath() string        { return filepath.Join(s.dir, "team_members.csv") }
func (s *Store) categoriesPath() string  { return filepath.Join(s.dir, "categories.json") }
func (s *Store) commentsDir() string     { return filepath.Join(s.dir, "comments") }
func (s *Store) historyDir() string      { return filepath.Join(s.dir, "history") }
func (s *Store) attachmentsDir() string  { return filepath.Join(s.dir, "attachments") }
func (s *Store) filesDir() string        { return filepath.Join(s.dir, "attachments", "files") }

func (s *Store) commentsPath(issueID string) string {
	return filepath.Join(s.commentsDir(), issueID+".csv")
}
func (s *Store) historyPath(issueID string) string {
	return filepath.Join(s.historyDir(), issueID+".csv")
}
func (s *Store) attachmentsPath(issueID string) string {
	return filepath.Join(s.attachmentsDir(), issueID+".csv")
}

// ensureIssuesLocked loads the issues cache; callers must hold the write
// lock. Rows whose dateClosed is set but whose status disagrees are
// normalized to Closed and rewritten, as the Flask app did lazily on render.
func (s *Store) ensureIssuesLocked() error {
	if s.loaded {
		return nil
	}
	rows, err := readRows(s.issuesPath())
	if err != nil {
		return err
	}
	issues := make([]models.Issue, 0, len(rows))
	dirty := false
	for _, row := range rows {
		is := issueFromRow(row)
		if is.Closed() && is.Status != models.StatusClosed {
			is.Status = models.StatusClosed
			dirty = true
		}
		issues = append(issues, is)
	}
	s.issues = issues
	s.loaded = true
	if dirty {
		return s.writeIssuesLocked()
	}
	return nil
}

func (s *Store) writeIssuesLocked() error {
	rows := make([]map[string]string, len(s.issues))
	for i, is := range s.issues {
		rows[i] = issueToRow(is)
	}
	// Our own rewrite fires a watcher event that drops the cache; the next
	// read reloads from the file we just wrote, which is equivalent.
	return writeRows(s.issuesPath(), issueHeaders, rows)
}

// InitFiles creates empty CSVs with header rows for a fresh deployment.
func (s *Store) InitFiles() error {
	for _, f := range []struct {
		path    string
		headers []string
	}{
		{s.issuesPath(), issueHeaders},
		{s.usersPath(), userHeaders},
		{s.hospitalsPath(), hospitalHeaders},
		{s.teamPath(), teamHeaders},
	} {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		if err := writeRows(f.path, f.headers, nil); err != nil {
			return err
		}
	}
	return nil
}
