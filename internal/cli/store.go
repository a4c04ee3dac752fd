package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rivervm/internal/state"
	"github.com/roach88/rivervm/internal/store"
	"github.com/roach88/rivervm/internal/store/pgstore"
)

// ledger is what serve and the admin commands need from a backend.
type ledger interface {
	state.Store
	AddPrincipal(ctx context.Context, rid uint64) error
	AddKey(ctx context.Context, rid uint64, key []byte) error
	RevokeKey(ctx context.Context, rid uint64, key []byte) error
}

// openedLedger pairs a backend with its health check and cleanup.
type openedLedger struct {
	ledger
	Backend string // "postgres" or "sqlite"
	Ping    func(ctx context.Context) error
	Close   func()
}

// DBOptions selects the backend. A database URL takes precedence.
type DBOptions struct {
	Path string
	URL  string
}

func (o *DBOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Path, "db", "river.db", "path to SQLite database")
	cmd.Flags().StringVar(&o.URL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL (overrides --db)")
}

func openLedger(ctx context.Context, databaseURL, path string) (*openedLedger, error) {
	if databaseURL != "" {
		pg, err := pgstore.Open(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return &openedLedger{ledger: pg, Backend: "postgres", Ping: pg.Ping, Close: pg.Close}, nil
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &openedLedger{
		ledger:  st,
		Backend: "sqlite",
		Ping:    st.DB().PingContext,
		Close:   func() { st.Close() },
	}, nil
}
