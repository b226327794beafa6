package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundCents(t *testing.T) {
	require.Equal(t, 10.0, roundCents(9.999))
	require.Equal(t, 12.35, roundCents(12.345))
	require.Equal(t, -3.5, roundCents(-3.5))
	require.Equal(t, 0.0, roundCents(0))
}

func TestDedupIDs(t *testing.T) {
	require.Equal(t, []int64{3, 1, 7}, dedupIDs([]int64{3, 1, 3, 0, -2, 7, 1}))
	require.Empty(t, dedupIDs(nil))
}

func TestSubjectKey(t *testing.T) {
	report := int64(42)
	require.Equal(t, "quote-subject:report:42", subjectKey(Quote{ID: 1, FarmID: 9, ReportID: &report, Title: "Pump"}))
	require.Equal(t, "quote-subject:farm:9:new pump", subjectKey(Quote{ID: 1, FarmID: 9, Title: "New Pump"}))
}
