package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

func TestReorderItemsReflectsEveryEntry(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	a := b.item(t, "a", b.todo, nil)
	c := b.item(t, "c", b.todo, nil)
	d := b.item(t, "d", b.doing, nil)

	// Drag "a" from To Do to the top of In Progress; the client resends the
	// displaced items of both columns.
	batch := []models.ItemPlacement{
		{ID: a.ID, StatusID: b.doing.ID, Rank: 0},
		{ID: d.ID, StatusID: b.doing.ID, Rank: 1},
		{ID: c.ID, StatusID: b.todo.ID, Rank: 0},
	}
	require.NoError(t, b.store.ReorderItems(ctx, b.project.ID, batch))

	for _, p := range batch {
		got := b.reload(t, p.ID)
		assert.Equal(t, p.StatusID, got.StatusID, "item %d status", p.ID)
		assert.Equal(t, p.Rank, got.Rank, "item %d rank", p.ID)
	}
}

func TestReorderItemsLastWriteWins(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	a := b.item(t, "a", b.todo, nil)

	require.NoError(t, b.store.ReorderItems(ctx, b.project.ID, []models.ItemPlacement{{ID: a.ID, StatusID: b.doing.ID, Rank: 3}}))
	require.NoError(t, b.store.ReorderItems(ctx, b.project.ID, []models.ItemPlacement{{ID: a.ID, StatusID: b.done.ID, Rank: 7}}))

	got := b.reload(t, a.ID)
	assert.Equal(t, b.done.ID, got.StatusID)
	assert.Equal(t, int64(7), got.Rank)

	// Duplicate ranks are accepted as submitted.
	c := b.item(t, "c", b.done, nil)
	require.NoError(t, b.store.ReorderItems(ctx, b.project.ID, []models.ItemPlacement{{ID: c.ID, StatusID: b.done.ID, Rank: 7}}))
	assert.Equal(t, int64(7), b.reload(t, c.ID).Rank)
}

func TestReorderItemsFailureLeavesStoreUntouched(t *testing.T) {
	b := newBoard(t)
	other := newBoardOn(t, b.store, "Other")
	ctx := context.Background()

	a := b.item(t, "a", b.todo, nil)
	foreign := other.item(t, "foreign", other.todo, nil)

	cases := map[string]struct {
		batch []models.ItemPlacement
		field string
	}{
		"unknown item": {
			batch: []models.ItemPlacement{{ID: a.ID, StatusID: b.done.ID, Rank: 9}, {ID: 12345, StatusID: b.done.ID, Rank: 1}},
			field: "items[1].id",
		},
		"item of another project": {
			batch: []models.ItemPlacement{{ID: a.ID, StatusID: b.done.ID, Rank: 9}, {ID: foreign.ID, StatusID: b.done.ID, Rank: 1}},
			field: "items[1].id",
		},
		"status of another project": {
			batch: []models.ItemPlacement{{ID: a.ID, StatusID: b.done.ID, Rank: 9}, {ID: a.ID, StatusID: other.done.ID, Rank: 1}},
			field: "items[1].status_id",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := b.store.ReorderItems(ctx, b.project.ID, tc.batch)
			require.True(t, apperr.Is(err, apperr.CodeInvalid), "got %v", err)
			assert.Contains(t, apperr.FieldsOf(err), tc.field)

			got := b.reload(t, a.ID)
			assert.Equal(t, b.todo.ID, got.StatusID)
			assert.Equal(t, a.Rank, got.Rank)
		})
	}
}

func TestPlaceItemRecomputesBothColumns(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	t1 := b.item(t, "t1", b.todo, nil)
	t2 := b.item(t, "t2", b.todo, nil)
	t3 := b.item(t, "t3", b.todo, nil)
	d1 := b.item(t, "d1", b.doing, nil)
	d2 := b.item(t, "d2", b.doing, nil)

	moved, err := b.store.PlaceItem(ctx, t2.ID, b.doing.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, b.doing.ID, moved.StatusID)

	items, err := b.store.ListItems(ctx, b.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{t1.ID, t3.ID, d1.ID, t2.ID, d2.ID}, ids(items))
	for _, id := range []int64{t1.ID, d1.ID} {
		assert.Equal(t, int64(0), b.reload(t, id).Rank)
	}
	assert.Equal(t, int64(1), b.reload(t, t3.ID).Rank)
	assert.Equal(t, int64(1), b.reload(t, t2.ID).Rank)
	assert.Equal(t, int64(2), b.reload(t, d2.ID).Rank)
}

func TestPlaceItemWithinColumnAndClamp(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	t1 := b.item(t, "t1", b.todo, nil)
	t2 := b.item(t, "t2", b.todo, nil)
	t3 := b.item(t, "t3", b.todo, nil)

	_, err := b.store.PlaceItem(ctx, t1.ID, b.todo.ID, 99)
	require.NoError(t, err)
	items, err := b.store.ListItems(ctx, b.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{t2.ID, t3.ID, t1.ID}, ids(items))

	_, err = b.store.PlaceItem(ctx, t1.ID, b.todo.ID, -1)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
}

func TestPlaceInBucketMovesBetweenBacklogAndSprint(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	sp := b.sprint(t, "Sprint 1")

	s1 := b.item(t, "s1", b.todo, &sp)
	s2 := b.item(t, "s2", b.doing, &sp)
	l1 := b.item(t, "l1", b.todo, nil)
	l2 := b.item(t, "l2", b.todo, nil)

	moved, err := b.store.PlaceInBucket(ctx, l2.ID, &sp.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, moved.SprintID)
	assert.Equal(t, sp.ID, *moved.SprintID)

	sprintItems, err := b.store.ListSprintItems(ctx, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{l2.ID, s1.ID, s2.ID}, ids(sprintItems))

	backlog, err := b.store.ListBacklog(ctx, b.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{l1.ID}, ids(backlog))
	assert.Equal(t, int64(0), backlog[0].Rank)

	_, err = b.store.PlaceInBucket(ctx, s1.ID, nil, 5)
	require.NoError(t, err)
	backlog, err = b.store.ListBacklog(ctx, b.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{l1.ID, s1.ID}, ids(backlog))
}
