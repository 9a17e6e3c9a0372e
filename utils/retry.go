package utils

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger
}

// Do executes fn with exponential back-off retry logic.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = r.BaseDelay
	strategy.Multiplier = 2
	strategy.RandomizationFactor = 0
	strategy.MaxElapsedTime = 0
	strategy.Reset()

	attempt := 0
	operation := func() error {
		attempt++
		return fn()
	}
	notify := func(err error, delay time.Duration) {
		if r.Logger != nil {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, attempts, err, delay)
		}
	}

	err := backoff.RetryNotify(operation, backoff.WithMaxRetries(strategy, uint64(attempts-1)), notify)
	if err != nil {
		return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempt, err)
	}
	return nil
}
