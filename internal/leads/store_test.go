package leads

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStore() *Store {
	return NewStore(nil, time.Minute)
}

func lead(id, kind string, created time.Time) Lead {
	return Lead{
		ID:        id,
		Kind:      kind,
		Status:    StatusNew,
		Name:      "Ирина",
		Phone:     "+7 900 000-00-00",
		Total:     decimal.Zero,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := "1790000000000000000"

	cursor := encodeCursor(now, id)
	decodedTime, decodedID, err := parseCursor(cursor)
	require.NoError(t, err)
	assert.True(t, decodedTime.Equal(now), "decoded time mismatch: got %s want %s", decodedTime, now)
	assert.Equal(t, id, decodedID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, c := range []string{"nocolon", "abc:1", "123:"} {
		_, _, err := parseCursor(c)
		assert.ErrorIs(t, err, ErrInvalidCursor, c)
	}
}

func TestMemoryListInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	s := memoryStore()
	l := lead("1", KindCheckout, time.Now().UTC())

	require.NoError(t, s.Create(ctx, l))

	first, err := s.List(ctx, ListQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.False(t, first.Cached, "first list should not be cached")

	second, err := s.List(ctx, ListQuery{Limit: 10})
	require.NoError(t, err)
	assert.True(t, second.Cached, "expected second list to hit cache")

	require.NoError(t, s.Delete(ctx, l.ID))

	third, err := s.List(ctx, ListQuery{Limit: 10})
	require.NoError(t, err)
	assert.False(t, third.Cached, "expected cache invalidation after delete")
	assert.Empty(t, third.Items)
}

func TestMemoryListPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := memoryStore()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, lead("1", KindCheckout, base)))
	require.NoError(t, s.Create(ctx, lead("2", KindQuiz, base.Add(time.Minute))))
	require.NoError(t, s.Create(ctx, lead("3", KindCheckout, base.Add(2*time.Minute))))

	first, err := s.List(ctx, ListQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "3", first.Items[0].ID)
	assert.Equal(t, "2", first.Items[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := s.List(ctx, ListQuery{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "1", second.Items[0].ID)
	assert.Empty(t, second.NextCursor)

	checkouts, err := s.List(ctx, ListQuery{Kind: "CHECKOUT", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, checkouts.Items, 2)

	_, err = s.List(ctx, ListQuery{Cursor: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := memoryStore()
	require.NoError(t, s.Create(ctx, lead("1", KindConsultation, time.Now().UTC())))

	_, err := s.Update(ctx, "1", Update{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	bad := "lost"
	_, err = s.Update(ctx, "1", Update{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	status, comment := " Contacted ", "  перезвонить в пятницу "
	got, err := s.Update(ctx, "1", Update{Status: &status, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, StatusContacted, got.Status)
	assert.Equal(t, "перезвонить в пятницу", got.Comment)

	_, err = s.Update(ctx, "ghost", Update{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)

	contacted, err := s.List(ctx, ListQuery{Status: StatusContacted})
	require.NoError(t, err)
	assert.Len(t, contacted.Items, 1)
}

func TestGetAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := memoryStore()

	_, err := s.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "ghost"), ErrNotFound)
}

func TestExplainInMemoryMode(t *testing.T) {
	s := memoryStore()
	plan, err := s.Explain(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "memory", plan.(map[string]any)["mode"])
	assert.Equal(t, "memory", s.Mode())
}

func TestEncodeDetails(t *testing.T) {
	l := lead("1", KindQuiz, time.Now())
	items, answers, err := encodeDetails(l)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, answers)

	l.Answers = map[string]string{"venue": "кафе"}
	_, answers, err = encodeDetails(l)
	require.NoError(t, err)
	assert.JSONEq(t, `{"venue":"кафе"}`, answers)
}
