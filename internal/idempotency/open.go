package idempotency

import (
	"context"

	"go.uber.org/zap"
)

// Open picks the store backend: Postgres when dsn is set, a file when path is
// set, memory otherwise. The returned close func is never nil.
func Open(ctx context.Context, dsn, path string, logger *zap.Logger) (Store, func(), error) {
	switch {
	case dsn != "":
		pg, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("idempotency store", zap.String("backend", "postgres"))
		return pg, pg.Close, nil
	case path != "":
		fs, err := NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("idempotency store", zap.String("backend", "file"), zap.String("path", path))
		return fs, func() {}, nil
	default:
		logger.Info("idempotency store", zap.String("backend", "memory"))
		return NewMemoryStore(), func() {}, nil
	}
}
