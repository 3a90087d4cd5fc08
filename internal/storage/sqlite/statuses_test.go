package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

func TestCreateStatusAppendsAfterMaxRank(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	require.NoError(t, b.store.ReorderStatuses(ctx, b.project.ID, []models.RankUpdate{{ID: b.done.ID, Rank: 10}}))

	review, err := b.store.CreateStatus(ctx, b.project.ID, "Review", "#aabbcc", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), review.Rank)
	assert.False(t, review.IsDone)
}

func TestCreateStatusDoneFlag(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	shipped, err := b.store.CreateStatus(ctx, b.project.ID, "done", "#aabbcc", nil)
	require.NoError(t, err)
	assert.True(t, shipped.IsDone, "name match is case-insensitive")

	yes := true
	released, err := b.store.CreateStatus(ctx, b.project.ID, "Released", "#aabbcc", &yes)
	require.NoError(t, err)
	assert.True(t, released.IsDone)
}

func TestCreateStatusValidation(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	_, err := b.store.CreateStatus(ctx, b.project.ID, "  ", "#aabbcc", nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
	assert.Contains(t, apperr.FieldsOf(err), "name")

	_, err = b.store.CreateStatus(ctx, b.project.ID, "QA", "teal", nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
	assert.Contains(t, apperr.FieldsOf(err), "color")

	_, err = b.store.CreateStatus(ctx, 999, "QA", "#aabbcc", nil)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestReorderStatusesAppliesRanksAsGiven(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	err := b.store.ReorderStatuses(ctx, b.project.ID, []models.RankUpdate{
		{ID: b.done.ID, Rank: 0},
		{ID: b.todo.ID, Rank: 5},
		{ID: b.doing.ID, Rank: 5},
	})
	require.NoError(t, err)

	statuses, err := b.store.ListStatuses(ctx, b.project.ID)
	require.NoError(t, err)
	got := map[int64]int64{}
	for _, st := range statuses {
		got[st.ID] = st.Rank
	}
	assert.Equal(t, map[int64]int64{b.done.ID: 0, b.todo.ID: 5, b.doing.ID: 5}, got)
	assert.Equal(t, b.done.ID, statuses[0].ID)

	// Applying the same batch again changes nothing.
	require.NoError(t, b.store.ReorderStatuses(ctx, b.project.ID, []models.RankUpdate{{ID: b.done.ID, Rank: 0}}))
	again, err := b.store.GetStatus(ctx, b.done.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Rank)
}

func TestReorderStatusesRejectsForeignIDAtomically(t *testing.T) {
	b := newBoard(t)
	other := newBoardOn(t, b.store, "Other")
	ctx := context.Background()

	err := b.store.ReorderStatuses(ctx, b.project.ID, []models.RankUpdate{
		{ID: b.todo.ID, Rank: 42},
		{ID: other.todo.ID, Rank: 1},
	})
	require.True(t, apperr.Is(err, apperr.CodeInvalid))
	assert.Contains(t, apperr.FieldsOf(err), "items[1].id")

	todo, err := b.store.GetStatus(ctx, b.todo.ID)
	require.NoError(t, err)
	assert.Equal(t, b.todo.Rank, todo.Rank, "batch must not be partially applied")
}

func TestDeleteStatusConflictsWhileReferenced(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	w := b.item(t, "blocked", b.doing, nil)

	err := b.store.DeleteStatus(ctx, b.doing.ID)
	require.True(t, apperr.Is(err, apperr.CodeConflict))

	require.NoError(t, b.store.ReorderItems(ctx, b.project.ID, []models.ItemPlacement{{ID: w.ID, StatusID: b.todo.ID, Rank: 0}}))
	require.NoError(t, b.store.DeleteStatus(ctx, b.doing.ID))

	statuses, err := b.store.ListStatuses(ctx, b.project.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, []int64{0, 2}, []int64{statuses[0].Rank, statuses[1].Rank}, "ranks are not compacted")

	err = b.store.DeleteStatus(ctx, b.doing.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestUpdateStatus(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	name, color, done := "Shipped", "#000000", true
	st, err := b.store.UpdateStatus(ctx, b.doing.ID, &name, &color, &done)
	require.NoError(t, err)
	assert.Equal(t, "Shipped", st.Name)
	assert.Equal(t, "#000000", st.Color)
	assert.True(t, st.IsDone)
	assert.Equal(t, b.doing.Rank, st.Rank)

	empty := " "
	_, err = b.store.UpdateStatus(ctx, b.doing.ID, &empty, nil, nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}
