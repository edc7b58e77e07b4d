package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/ragtime/storage"
)

// Backend owns the BadgerDB handle shared by the fragment and checkpoint
// repositories.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger routes badger's printf-style logging into slog. Badger
// reports compactions and value log GC at info level; those go to debug.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBackend opens the fragment store at filePath, creating the directory
// when missing. With inMemory the path is ignored and nothing touches disk.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	logger := slog.Default().With("component", "badger")

	opts := badger.DefaultOptions(filePath)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := ensureDir(filePath); err != nil {
		return nil, err
	}
	opts.Logger = &badgerLogger{logger: logger}
	// Embeddings are high-entropy floats and do not compress.
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open fragment store: %w", err)
	}
	logger.Debug("opened fragment store", "path", filePath, "in_memory", inMemory)

	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(path, 0o755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// Close closes the database. Repositories built on the backend fail with
// storage.ErrStorageClosed afterwards.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// view runs fn in a read-only transaction.
func (b *Backend) view(fn func(tx *badger.Txn) error) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	return b.db.View(fn)
}

// update runs fn in a read-write transaction committed when fn returns nil.
func (b *Backend) update(fn func(tx *badger.Txn) error) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	return b.db.Update(fn)
}

// WithTransaction runs fn inside a write transaction. Implements
// storage.Repository.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.update(func(*badger.Txn) error {
		return fn(ctx)
	})
}
