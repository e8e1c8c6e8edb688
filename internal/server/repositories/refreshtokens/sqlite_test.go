package refreshtokens_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sqlitetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	db    *sql.DB
	repo  refreshtokens.Repository
	clock *clock
	user  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	db, m := sqlitetest.Open(t, repomanager.WithClock(c.Now))

	u, err := m.Users(db).Create(context.Background(),
		[]models.Contact{{Kind: models.ContactLogin, Value: "alice"}}, "hash")
	require.NoError(t, err)

	return &fixture{db: db, repo: m.RefreshTokens(db), clock: c, user: u.ID}
}

func (f *fixture) status(t *testing.T, hash string) models.RefreshTokenStatus {
	t.Helper()
	var s models.RefreshTokenStatus
	require.NoError(t, f.db.QueryRow(`SELECT status FROM refresh_tokens WHERE token_hash = ?1`, hash).Scan(&s))
	return s
}

func TestConsume_ExactlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.user, "h1", f.clock.Now().Add(time.Hour)))

	got, err := f.repo.Consume(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, f.user, got)
	assert.Equal(t, models.RefreshTokenConsumed, f.status(t, "h1"))

	_, err = f.repo.Consume(ctx, "h1")
	assert.ErrorIs(t, err, common.ErrNotFoundOrExpired)
}

func TestConsume_UnknownHash(t *testing.T) {
	f := setup(t)

	_, err := f.repo.Consume(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFoundOrExpired)
}

func TestConsume_Expired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.user, "h1", f.clock.Now().Add(time.Minute)))
	f.clock.Advance(time.Minute)

	_, err := f.repo.Consume(ctx, "h1")
	assert.ErrorIs(t, err, common.ErrNotFoundOrExpired)
	assert.Equal(t, models.RefreshTokenActive, f.status(t, "h1"), "expired record is left for the janitor")
}

func TestConsume_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, f.user, "h1", f.clock.Now().Add(time.Hour)))

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		misses   int
		failures []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.repo.Consume(ctx, "h1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case err == common.ErrNotFoundOrExpired:
				misses++
			default:
				failures = append(failures, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, misses)
}

func TestInvalidateAll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	exp := f.clock.Now().Add(time.Hour)

	require.NoError(t, f.repo.Create(ctx, f.user, "h1", exp))
	require.NoError(t, f.repo.Create(ctx, f.user, "h2", exp))
	require.NoError(t, f.repo.Create(ctx, f.user, "h3", exp))
	_, err := f.repo.Consume(ctx, "h3")
	require.NoError(t, err)

	n, err := f.repo.InvalidateAll(ctx, f.user)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, models.RefreshTokenInvalidated, f.status(t, "h1"))
	assert.Equal(t, models.RefreshTokenConsumed, f.status(t, "h3"))

	n, err = f.repo.InvalidateAll(ctx, f.user)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "idempotent")

	_, err = f.repo.Consume(ctx, "h1")
	assert.ErrorIs(t, err, common.ErrNotFoundOrExpired)
}

func TestDeleteExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := f.clock.Now()

	require.NoError(t, f.repo.Create(ctx, f.user, "old", now.Add(time.Minute)))
	require.NoError(t, f.repo.Create(ctx, f.user, "new", now.Add(time.Hour)))

	n, err := f.repo.DeleteExpired(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM refresh_tokens`).Scan(&left))
	assert.Equal(t, 1, left)
}

func TestCreate_DuplicateHash(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	exp := f.clock.Now().Add(time.Hour)

	require.NoError(t, f.repo.Create(ctx, f.user, "h1", exp))
	assert.Error(t, f.repo.Create(ctx, f.user, "h1", exp))
}
