package orders

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRefErr(t *testing.T) {
	err := refErr(&pgconn.PgError{Code: "23503", ConstraintName: "quotes_farm_id_fkey"})
	require.ErrorIs(t, err, ErrUnknownReference)
	require.Contains(t, err.Error(), "quotes_farm_id_fkey")

	other := errors.New("conn reset")
	require.Same(t, other, refErr(other))
	require.NoError(t, refErr(nil))
	require.NotErrorIs(t, refErr(&pgconn.PgError{Code: "23505"}), ErrUnknownReference)
}
