package override

import (
	"context"

	"go.uber.org/zap"
)

// Open builds a loaded Manager. With memory set the overrides live only in
// memory; otherwise they are kept in the SQLite database at path, or at
// DefaultPath when path is empty.
func Open(ctx context.Context, path string, memory bool, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if memory {
		logger.Info("using in-memory override store",
			zap.String("op", "override.Open"),
		)
		return NewManager(NewMemoryStore(), logger), nil
	}

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	store, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	logger.Info("opened override store",
		zap.String("op", "override.Open"),
		zap.String("path", path),
	)

	manager := NewManager(store, logger)
	if err := manager.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return manager, nil
}
