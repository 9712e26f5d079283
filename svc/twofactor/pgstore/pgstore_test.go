package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/migrations"
	"github.com/rafiki-assist/rafiki/pkg/logger"
	"github.com/rafiki-assist/rafiki/pkg/pg"
	"github.com/rafiki-assist/rafiki/svc/twofactor/pgstore"
	"github.com/rafiki-assist/rafiki/svc/twofactor/storetest"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("TEST_PG_CONN_URL")
	if dsn == "" {
		t.Skip("TEST_PG_CONN_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := pg.Config{
		ConnectionString: dsn,
		MaxOpenConns:     4,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		MigrationsTable:  "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, migrations.FS, migrations.Dir, cfg, logger.Discard()))

	storetest.Run(t, pgstore.New(pool))
}
