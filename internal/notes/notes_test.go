package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ctmap/internal/model"
)

func TestReconcile(t *testing.T) {
	locs := []model.Location{loc("A", nil), loc("B", strPtr("stale")), loc("C", nil)}

	got := Reconcile(locs, map[string]string{"A": "Loved it", "Z": "orphan"})
	require.Len(t, got, 3)

	require.NotNil(t, got[0].Notes)
	assert.Equal(t, "Loved it", *got[0].Notes)
	require.NotNil(t, got[1].Notes)
	assert.Equal(t, "", *got[1].Notes)
	require.NotNil(t, got[2].Notes)
	assert.Equal(t, "", *got[2].Notes)

	// Input is left alone.
	assert.Nil(t, locs[0].Notes)
	assert.Equal(t, "stale", *locs[1].Notes)
}

func TestReconcile_NilMap(t *testing.T) {
	got := Reconcile([]model.Location{loc("A", nil)}, nil)
	require.NotNil(t, got[0].Notes)
	assert.Empty(t, *got[0].Notes)
}

func TestChanges(t *testing.T) {
	got := changes([]model.Location{
		loc("A", strPtr("x")),
		loc("B", strPtr("")),
		loc("C", nil),
		loc("", strPtr("no name")),
	})
	assert.Equal(t, []change{{name: "A", notes: "x"}}, got)
}

func TestSaveAll_ReconciledSetKeepsOtherNotes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveAll(ctx, []model.Location{
		loc("A", strPtr("Loved it")),
		loc("B", strPtr("Great pie")),
	}))

	// A set reconciled against nothing carries "" for every location.
	locs := Reconcile([]model.Location{loc("A", nil), loc("B", nil), loc("C", nil)}, nil)
	locs[2] = locs[2].WithNotes("Go-karts")
	require.NoError(t, st.SaveAll(ctx, locs))

	got, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "Loved it", "B": "Great pie", "C": "Go-karts"}, got)
}

func TestList_WithoutLister(t *testing.T) {
	m := newMemBackend("mem")
	m.data = map[string]string{"b": "2", "a": "1"}

	got, err := List(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].LocationName)
	assert.Equal(t, "1", got[0].Notes)
	assert.True(t, got[0].Timestamp.IsZero())
	assert.Equal(t, "b", got[1].LocationName)
}

func TestList_Error(t *testing.T) {
	m := newMemBackend("mem")
	m.failing = true
	_, err := List(context.Background(), m)
	assert.ErrorIs(t, err, errBroken)
}
