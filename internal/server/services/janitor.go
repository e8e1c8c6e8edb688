package services

import (
	"context"
	"time"
)

// PurgeExpired deletes refresh token records that have expired, whatever
// their status.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, s.failure(ctx, "purge expired refresh tokens", err)
	}
	return n, nil
}

// RunJanitor calls PurgeExpired every interval until ctx is done. Failed
// runs are logged and retried on the next tick.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}
