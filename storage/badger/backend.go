package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragstore/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations
// shared by all stores: transactions with optimistic-conflict retry and a
// worker pool for concurrent per-item writes.
type Backend struct {
	db     *badger.DB
	pool   *ants.Pool
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// openBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func openBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU()
	if poolSize < 2 {
		poolSize = 2
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Backend{
		db:     db,
		pool:   pool,
		logger: slog.Default(),
	}, nil
}

// Close closes the worker pool and the BadgerDB database.
func (b *Backend) Close() error {
	b.pool.Release()
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
// Operations on a backend that has been torn down return
// storage.ErrStorageClosed.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// View executes a function within a read-only transaction.
func (b *Backend) View(fn func(tx *badger.Txn) error) error {
	return b.WithTx(fn, false)
}

// Update executes a function within a read-write transaction and commits
// it, retrying on optimistic-transaction conflict. Retried functions re-read
// their inputs, so conditional writes (insert-only cache entries, edge
// replace-or-append) stay correct under concurrent writers.
func (b *Backend) Update(fn func(tx *badger.Txn) error) error {
	for {
		err := b.WithTx(func(tx *badger.Txn) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

// runBatch submits tasks to the shared worker pool and waits for all of
// them. Tasks run concurrently as independent operations with no cross-task
// atomicity: a failed task does not roll back the others. All task errors
// are joined.
func (b *Backend) runBatch(tasks ...func() error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	for i, task := range tasks {
		wg.Add(1)
		if err := b.pool.Submit(func() {
			defer wg.Done()
			errs[i] = task()
		}); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Manager owns the shared Backend handle, reference-counted across storage
// instances. Every store pairs Acquire in its constructor with Release in
// Close; the underlying database is opened on first acquire and torn down
// when the count reaches zero. At most one Backend per Manager is live at
// any time.
type Manager struct {
	mu       sync.Mutex
	path     string
	inMemory bool
	backend  *Backend
	refs     int
	logger   *slog.Logger
}

// NewManager creates a connection manager for the database at path.
// No connection is opened until the first Acquire.
func NewManager(path string, inMemory bool) *Manager {
	return &Manager{
		path:     path,
		inMemory: inMemory,
		logger:   slog.Default().With("component", "manager"),
	}
}

// NewMemoryManager creates a manager backed by an in-memory database.
// Intended for tests.
func NewMemoryManager() *Manager {
	return NewManager("", true)
}

// Acquire returns the shared Backend, opening it if no live handle exists.
// Opening resets the reference count to zero before incrementing. An
// unreachable endpoint yields an error wrapping storage.ErrConnection; there
// is no retry at this layer.
func (m *Manager) Acquire() (*Backend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend == nil || m.backend.IsClosed() {
		backend, err := openBackend(m.path, m.inMemory)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", storage.ErrConnection, m.path, err)
		}
		m.backend = backend
		m.refs = 0
		m.logger.Debug("opened backend", "path", m.path, "in_memory", m.inMemory)
	}
	m.refs++
	return m.backend, nil
}

// Release decrements the reference count for backend and closes the
// underlying database when the count reaches zero. Releasing a handle the
// manager does not own is a no-op. The mutex is not held during the close.
func (m *Manager) Release(backend *Backend) error {
	m.mu.Lock()
	var toClose *Backend
	if backend != nil && backend == m.backend {
		m.refs--
		if m.refs == 0 {
			toClose = m.backend
			m.backend = nil
		}
	}
	m.mu.Unlock()

	if toClose == nil {
		return nil
	}
	m.logger.Debug("closing backend", "path", m.path)
	return toClose.Close()
}
