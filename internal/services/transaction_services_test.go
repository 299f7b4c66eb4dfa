package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/repositories"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conflict", repositories.ErrConflict, true},
		{"wrapped conflict", fmt.Errorf("commit: %w", repositories.ErrConflict), true},
		{"deadlock text", errors.New("pq: deadlock detected"), true},
		{"serialization text", errors.New("could not serialize access due to concurrent update"), true},
		{"not found", repositories.ErrNotFound, false},
		{"service error", NewNotFoundError("user 1 not found"), false},
		{"connection reset", errors.New("read: connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

type scriptedTx struct {
	errs  []error
	calls int
}

func (s *scriptedTx) RunInTx(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestExecuteWithRetry(t *testing.T) {
	cfg := &TransactionConfig{MaxRetries: 2, RetryDelay: time.Millisecond, MaxRetryDelay: 2 * time.Millisecond}
	noop := func(repositories.UnitOfWork) error { return nil }

	t.Run("succeeds after conflicts", func(t *testing.T) {
		tx := &scriptedTx{errs: []error{repositories.ErrConflict, repositories.ErrConflict}}
		svc := NewTransactionService(tx, zap.NewNop(), cfg)
		require.NoError(t, svc.ExecuteWithRetry(context.Background(), "test", noop))
		assert.Equal(t, 3, tx.calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		boom := errors.New("boom")
		tx := &scriptedTx{errs: []error{boom}}
		svc := NewTransactionService(tx, zap.NewNop(), cfg)
		err := svc.ExecuteWithRetry(context.Background(), "test", noop)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, tx.calls)
	})

	t.Run("service errors pass through", func(t *testing.T) {
		tx := &scriptedTx{errs: []error{EntityNotFoundError("user", 3)}}
		svc := NewTransactionService(tx, zap.NewNop(), cfg)
		err := svc.ExecuteWithRetry(context.Background(), "test", noop)
		assert.True(t, IsNotFoundError(err))
		assert.Equal(t, 1, tx.calls)
	})

	t.Run("exhausted retries report a retryable conflict", func(t *testing.T) {
		tx := &scriptedTx{errs: []error{repositories.ErrConflict, repositories.ErrConflict, repositories.ErrConflict}}
		svc := NewTransactionService(tx, zap.NewNop(), cfg)
		err := svc.ExecuteWithRetry(context.Background(), "test", noop)

		var serviceErr *ServiceError
		require.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, CodeConflictRetryable, serviceErr.Code)
		assert.Equal(t, 3, tx.calls)
	})
}
