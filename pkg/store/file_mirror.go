package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Mindburn-Labs/dil/pkg/contracts"
)

// FileMirror appends records to a JSONL file and fsyncs after every write.
// A failed append is truncated off the file; if that fails too the mirror
// refuses further appends.
type FileMirror struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	next   uint64
	broken error
	sync   func(*os.File) error
}

// NewFileMirror opens (or creates) path for appending.
func NewFileMirror(path string) (*FileMirror, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	existing, err := readFile(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	return &FileMirror{path: path, f: f, next: uint64(len(existing)) + 1, sync: (*os.File).Sync}, nil
}

func (m *FileMirror) Append(_ context.Context, seq uint64, rec contracts.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.broken != nil {
		return fmt.Errorf("%w: %w", ErrMirrorBroken, m.broken)
	}
	if seq != m.next {
		return fmt.Errorf("%w: got %d, want %d", ErrSequence, seq, m.next)
	}

	st, err := m.f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", m.path, err)
	}
	off := st.Size()

	if err := WriteJSONL(m.f, []contracts.AuditRecord{rec}); err != nil {
		return m.rollback(off, err)
	}
	if err := m.sync(m.f); err != nil {
		return m.rollback(off, fmt.Errorf("fsync %s: %w", m.path, err))
	}
	m.next++
	return nil
}

// rollback cuts the file back to off after a failed append.
func (m *FileMirror) rollback(off int64, cause error) error {
	rerr := m.f.Truncate(off)
	if rerr == nil {
		rerr = m.sync(m.f)
	}
	if rerr != nil {
		m.broken = rerr
		return fmt.Errorf("%w; rollback: %w", cause, rerr)
	}
	return cause
}

func (m *FileMirror) List(_ context.Context) ([]contracts.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return readFile(m.path)
}

// Path returns the backing file.
func (m *FileMirror) Path() string { return m.path }

func (m *FileMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}

func readFile(path string) ([]contracts.AuditRecord, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if os.IsNotExist(err) {
		return []contracts.AuditRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	recs, err := ReadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}
