package util

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry runs fn up to attempts times, waiting backoff between tries. It
// returns the last error once the attempts are spent, or ctx.Err when the
// context ends while waiting.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			log.Warn().Err(err).Int("attempt", i).Int("attempts", attempts).Msg("retrying")
		}
	}
	return err
}
