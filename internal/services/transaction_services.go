package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"unihub/internal/repositories"
)

// transactionService runs units of work and retries transient write conflicts
type transactionService struct {
	tx     repositories.TxManager
	logger *zap.Logger
	config *TransactionConfig
}

// TransactionConfig holds transaction service configuration
type TransactionConfig struct {
	MaxRetries    int           `json:"max_retries"`
	RetryDelay    time.Duration `json:"retry_delay"`
	MaxRetryDelay time.Duration `json:"max_retry_delay"`
}

// DefaultTransactionConfig returns default transaction configuration
func DefaultTransactionConfig() *TransactionConfig {
	return &TransactionConfig{
		MaxRetries:    3,
		RetryDelay:    20 * time.Millisecond,
		MaxRetryDelay: 500 * time.Millisecond,
	}
}

// NewTransactionService creates a transaction service over tx
func NewTransactionService(tx repositories.TxManager, logger *zap.Logger, config *TransactionConfig) TransactionService {
	if config == nil {
		config = DefaultTransactionConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transactionService{
		tx:     tx,
		logger: logger.With(zap.String("component", "transaction_service")),
		config: config,
	}
}

// ExecuteWithRetry runs fn in one transaction. Retryable failures roll back and
// run fn again from scratch, up to MaxRetries extra attempts.
func (s *transactionService) ExecuteWithRetry(ctx context.Context, operation string, fn func(uow repositories.UnitOfWork) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.RetryDelay
	policy.MaxInterval = s.config.MaxRetryDelay
	policy.MaxElapsedTime = 0

	maxRetries := s.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	var lastErr error
	run := func() error {
		attempt++
		err := s.tx.RunInTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn("Transaction failed, will retry",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(run, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx), notify)
	if err == nil {
		return nil
	}

	if isRetryableError(lastErr) {
		s.logger.Error("Transaction retries exhausted",
			zap.String("operation", operation),
			zap.Int("attempts", attempt),
			zap.Error(lastErr),
		)
		return NewConflictError("concurrent update, please retry", CodeConflictRetryable).
			WithDetail("attempts", attempt).
			WithCause(lastErr)
	}
	return err
}

// isRetryableError determines if an error is a transient write conflict
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repositories.ErrConflict) {
		return true
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"deadlock",
		"serialization failure",
		"could not serialize access",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
