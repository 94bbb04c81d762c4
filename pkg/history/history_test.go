package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(id string, endedAt time.Time) *types.SessionRecord {
	return &types.SessionRecord{
		SessionID:       id,
		StartedAt:       endedAt.Add(-10 * time.Minute),
		EndedAt:         endedAt,
		PrimaryLanguage: "English",
		TargetLanguage:  "Spanish",
		Proficiency:     "B1",
		TurnPairs:       4,
		Turns: []types.Turn{
			{Role: types.RoleSystem, Text: "¡Hola!", AudioRef: "/static/" + id + "_0.wav", Index: 0},
			{Role: types.RoleUser, Text: "hola", Index: 1},
		},
		Summary: "You talked about greetings.",
		Feedback: []types.Feedback{{
			Original:    "yo es feliz",
			Corrected:   "yo estoy feliz",
			Explanation: "estar is used for states",
		}},
	}
}

func TestSaveAndGetRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleRecord("sess-1", time.Now().UTC().Truncate(time.Millisecond))

	require.NoError(t, s.SaveRecord(ctx, want))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Turns, got.Turns)
	assert.Equal(t, want.Feedback, got.Feedback)
	assert.True(t, want.EndedAt.Equal(got.EndedAt))
}

func TestSaveRecordIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord("sess-1", time.Now().UTC())

	require.NoError(t, s.SaveRecord(ctx, rec))
	rec.Summary = "Updated after a retried finalize."
	require.NoError(t, s.SaveRecord(ctx, rec))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Updated after a retried finalize.", list[0].Summary)
}

func TestListNewestFirstAndTruncated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	older := sampleRecord("older", base.Add(-time.Hour))
	newer := sampleRecord("newer", base)
	newer.Summary = strings.Repeat("x", 150)
	require.NoError(t, s.SaveRecord(ctx, older))
	require.NoError(t, s.SaveRecord(ctx, newer))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].SessionID)
	assert.Equal(t, "older", list[1].SessionID)
	assert.Equal(t, strings.Repeat("x", 100)+"...", list[0].Summary)
	assert.Equal(t, 4, list[0].TurnPairs)
}

func TestGetMissingRecord(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrNotFound, coreErr.Type)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRecord(ctx, sampleRecord("sess-1", time.Now().UTC())))

	require.NoError(t, s.Delete(ctx, "sess-1"))

	var coreErr *core.Error
	require.ErrorAs(t, s.Delete(ctx, "sess-1"), &coreErr)
	assert.Equal(t, core.ErrNotFound, coreErr.Type)
}

func TestDeleteAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveRecord(ctx, sampleRecord("a", time.Now().UTC())))
	require.NoError(t, s.SaveRecord(ctx, sampleRecord("b", time.Now().UTC())))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "no settings saved yet")

	want := types.SessionSettings{
		PrimaryLanguage: "English",
		TargetLanguage:  "French",
		Proficiency:     "A2",
		StopPhrase:      "stop session",
		SpeechRate:      0.9,
	}
	require.NoError(t, s.SaveSettings(ctx, want))

	got, err = s.LoadSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	// Saving again overwrites the single row.
	want.TargetLanguage = "Italian"
	require.NoError(t, s.SaveSettings(ctx, want))
	got, err = s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Italian", got.TargetLanguage)
}
