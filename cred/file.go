package cred

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/swad/password"
)

type fileEntry struct {
	hash     string
	realname string
}

// File checks credentials against a passwd-style file of
// "username:argon2id-hash[:Real Name]" lines. Blank lines and lines starting
// with '#' are ignored. The file is reloaded when its size or modification
// time changes.
type File struct {
	path   string
	hasher *password.Argon2
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]fileEntry
	modTime time.Time
	size    int64
}

// NewFile loads path and returns a checker over it.
func NewFile(path string, hasher *password.Argon2, logger *zap.Logger) (*File, error) {
	if hasher == nil {
		return nil, fmt.Errorf("%w: file checker needs a hasher", ErrArgs)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &File{path: path, hasher: hasher, logger: logger}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func parsePasswd(path string) (map[string]fileEntry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	entries := make(map[string]fileEntry)
	sc := bufio.NewScanner(fh)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.SplitN(line, ":", 3)
		if len(fields) < 2 || fields[0] == "" {
			return nil, fmt.Errorf("%s:%d: expected username:hash[:name]", path, n)
		}
		if _, err := password.ParsePHC(fields[1]); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		if _, dup := entries[fields[0]]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate user %q", path, n, fields[0])
		}
		e := fileEntry{hash: fields[1]}
		if len(fields) == 3 {
			e.realname = fields[2]
		}
		entries[fields[0]] = e
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (f *File) reload() error {
	st, err := os.Stat(f.path)
	if err != nil {
		return err
	}
	entries, err := parsePasswd(f.path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.entries, f.modTime, f.size = entries, st.ModTime(), st.Size()
	f.mu.Unlock()
	return nil
}

// refresh reloads the file when it changed on disk. A broken file keeps the
// previous entries.
func (f *File) refresh() {
	st, err := os.Stat(f.path)
	if err != nil {
		return
	}
	f.mu.RLock()
	same := st.ModTime().Equal(f.modTime) && st.Size() == f.size
	f.mu.RUnlock()
	if same {
		return
	}
	if err := f.reload(); err != nil {
		f.logger.Warn("passwd file reload failed", zap.String("path", f.path), zap.Error(err))
		return
	}
	f.logger.Info("passwd file reloaded", zap.String("path", f.path), zap.Int("users", f.Len()))
}

// Len returns the number of users loaded.
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

func (f *File) Check(_ context.Context, username, pw string) (string, bool, error) {
	f.refresh()

	f.mu.RLock()
	e, ok := f.entries[username]
	f.mu.RUnlock()
	if !ok {
		return "", f.hasher.VerifyAbsent(pw), nil
	}

	match, err := f.hasher.Verify(pw, e.hash)
	if err != nil || !match {
		return "", false, nil
	}
	return e.realname, true, nil
}

func (f *File) Close() error { return nil }
