// Package storage provides the key/value persistence backends used by the
// session store: memory, one file per key, SQLite, and a remote HTTP service.
package storage

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a key has never been saved
var ErrNotFound = soundscape.ErrNotFound

// Backend names a storage implementation
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRemote Backend = "remote"
)

// Store is a closable Persistence
type Store interface {
	soundscape.Persistence
	io.Closer
}

// Options selects and configures a backend
type Options struct {
	Backend Backend
	// Path is the directory for file storage or the database file for sqlite
	Path string
	// URL is the base URL of the remote key/value service
	URL     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Open creates the backend named by opts
func Open(opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store Store
		err   error
	)
	switch Backend(strings.ToLower(string(opts.Backend))) {
	case BackendMemory, "":
		store = NewMemory()
	case BackendFile:
		store, err = asStore(NewFile(opts.Path))
	case BackendSQLite:
		store, err = asStore(OpenSQLite(opts.Path))
	case BackendRemote:
		store, err = asStore(NewRemote(opts.URL, opts.Timeout, logger))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Storage opened",
		zap.String("backend", string(opts.Backend)),
		zap.String("path", opts.Path),
		zap.String("url", opts.URL))
	return store, nil
}

// asStore avoids wrapping a typed nil pointer in a non-nil interface
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
