package orders

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/allevapp/allevapp/internal/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// These run against a real database: TEST_POSTGRES_DSN=postgres://... go test ./internal/orders
func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, dsn))
	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return &Repo{DB: pool}
}

type fixture struct {
	company   string
	farmID    int64
	reportID  int64
	suppliers []int64
}

func seed(t *testing.T, r *Repo, prefix string) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{company: "Test Co " + uuid.NewString()}

	if prefix != "" {
		_, err := r.DB.Exec(ctx, `INSERT INTO companies (name, order_prefix) VALUES ($1, $2)`, f.company, prefix)
		require.NoError(t, err)
	}
	require.NoError(t, r.DB.QueryRow(ctx,
		`INSERT INTO farms (name, company) VALUES ('North field', $1) RETURNING id`, f.company).Scan(&f.farmID))
	require.NoError(t, r.DB.QueryRow(ctx, `
		INSERT INTO reports (farm_id, title, urgency) VALUES ($1, 'Irrigation pump leaking', 'high')
		RETURNING id`, f.farmID).Scan(&f.reportID))
	for _, name := range []string{"Agri Parts", "Pump World", "Field Supply"} {
		var id int64
		require.NoError(t, r.DB.QueryRow(ctx,
			`INSERT INTO suppliers (name, email) VALUES ($1, 'sales@example.com') RETURNING id`, name).Scan(&id))
		f.suppliers = append(f.suppliers, id)
	}
	return f
}

func TestAcceptQuoteRejectsSiblings(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	f := seed(t, r, "")

	quotes, err := r.CreateQuotes(ctx, NewQuotes{
		Title:       "Replacement pump",
		FarmID:      f.farmID,
		ReportID:    &f.reportID,
		SupplierIDs: f.suppliers,
	})
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	_, err = r.RecordQuoteResponse(ctx, quotes[0].ID, 1250.5)
	require.NoError(t, err)

	acc, err := r.AcceptQuote(ctx, quotes[0].ID, AcceptInput{Notes: "deliver to barn 2"})
	require.NoError(t, err)
	require.Equal(t, QuoteAccepted, acc.Quote.Status)
	require.Equal(t, 1250.5, acc.Order.TotalAmount)
	require.Equal(t, 1, acc.Order.SequentialNumber)
	require.True(t, strings.HasPrefix(acc.Order.OrderNumber, "TEST-"), acc.Order.OrderNumber)
	require.ElementsMatch(t, []int64{quotes[1].ID, quotes[2].ID}, acc.Rejected)

	for _, q := range quotes[1:] {
		got, err := r.GetQuote(ctx, q.ID)
		require.NoError(t, err)
		require.Equal(t, QuoteRejected, got.Status)
	}

	_, err = r.AcceptQuote(ctx, quotes[1].ID, AcceptInput{TotalAmount: ptr(10.0)})
	require.True(t, errors.Is(err, ErrInvalidTransition), err)

	order, err := r.GetOrderByQuote(ctx, quotes[0].ID)
	require.NoError(t, err)
	require.Equal(t, acc.Order.OrderNumber, order.OrderNumber)
}

func TestOrderNumbersSequentialPerCompany(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	f := seed(t, r, "NRT")

	var numbers []string
	for i, title := range []string{"Fence wire", "Tractor tyres", "Feed silo valve"} {
		qs, err := r.CreateQuotes(ctx, NewQuotes{Title: title, FarmID: f.farmID, SupplierIDs: f.suppliers[:1]})
		require.NoError(t, err)
		acc, err := r.AcceptQuote(ctx, qs[0].ID, AcceptInput{TotalAmount: ptr(100)})
		require.NoError(t, err)
		require.Equal(t, i+1, acc.Order.SequentialNumber)
		numbers = append(numbers, acc.Order.OrderNumber)
	}
	require.Len(t, numbers, 3)
	for _, n := range numbers {
		require.True(t, strings.HasPrefix(n, "NRT-"), n)
	}
	require.NotEqual(t, numbers[0], numbers[1])
	require.True(t, strings.HasSuffix(numbers[2], "-00003"), numbers[2])
}

func TestAcceptQuoteWithoutAmountRollsBack(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	f := seed(t, r, "")

	qs, err := r.CreateQuotes(ctx, NewQuotes{Title: "Roof panels", FarmID: f.farmID, SupplierIDs: f.suppliers[:2]})
	require.NoError(t, err)

	_, err = r.AcceptQuote(ctx, qs[0].ID, AcceptInput{})
	require.ErrorIs(t, err, ErrAmountRequired)

	got, err := r.GetQuote(ctx, qs[1].ID)
	require.NoError(t, err)
	require.Equal(t, QuoteRequested, got.Status)

	var seqRows int
	require.NoError(t, r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM order_sequences WHERE company=$1`, f.company).Scan(&seqRows))
	require.Zero(t, seqRows)
}

func TestAcceptQuoteFailureAfterNumberingRollsBack(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	f := seed(t, r, "")

	qs, err := r.CreateQuotes(ctx, NewQuotes{Title: "Water tank", FarmID: f.farmID, SupplierIDs: f.suppliers[:2]})
	require.NoError(t, err)

	// an order row already holding this quote makes the insert fail after the sequence was taken
	_, err = r.DB.Exec(ctx, `
		INSERT INTO order_confirmations (quote_id, order_number, company, sequential_number, total_amount, order_date)
		VALUES ($1, $2, $3, 1, 10, current_date)`, qs[0].ID, "X-"+uuid.NewString(), "Elsewhere "+uuid.NewString())
	require.NoError(t, err)

	_, err = r.AcceptQuote(ctx, qs[0].ID, AcceptInput{TotalAmount: ptr(75)})
	require.ErrorIs(t, err, ErrAlreadyAccepted)

	var seqRows int
	require.NoError(t, r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM order_sequences WHERE company=$1`, f.company).Scan(&seqRows))
	require.Zero(t, seqRows, "sequence allocation is rolled back")

	for _, q := range qs {
		got, err := r.GetQuote(ctx, q.ID)
		require.NoError(t, err)
		require.Equal(t, QuoteRequested, got.Status)
	}

	// the next successful acceptance for the company still gets number 1
	other, err := r.CreateQuotes(ctx, NewQuotes{Title: "Hay bales", FarmID: f.farmID, SupplierIDs: f.suppliers[:1]})
	require.NoError(t, err)
	acc, err := r.AcceptQuote(ctx, other[0].ID, AcceptInput{TotalAmount: ptr(20)})
	require.NoError(t, err)
	require.Equal(t, 1, acc.Order.SequentialNumber)
}

func TestCreateQuotesUnknownReference(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	f := seed(t, r, "")

	_, err := r.CreateQuotes(ctx, NewQuotes{Title: "Gate", FarmID: -1, SupplierIDs: f.suppliers[:1]})
	require.ErrorIs(t, err, ErrUnknownReference)

	missing := int64(-7)
	_, err = r.CreateQuotes(ctx, NewQuotes{Title: "Gate", FarmID: f.farmID, ReportID: &missing, SupplierIDs: f.suppliers[:1]})
	require.ErrorIs(t, err, ErrUnknownReference)

	_, err = r.CreateQuotes(ctx, NewQuotes{Title: "Gate", FarmID: f.farmID, SupplierIDs: []int64{f.suppliers[0], -3}})
	require.ErrorIs(t, err, ErrUnknownReference)

	list, err := r.ListQuotes(ctx, QuoteFilter{FarmID: f.farmID, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, list, "partial inserts are rolled back")
}

func ptr(v float64) *float64 { return &v }
