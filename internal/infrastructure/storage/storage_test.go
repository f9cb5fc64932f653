package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconly/reconcile-backend/internal/infrastructure/storage"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(id string) *storage.RunRecord {
	return &storage.RunRecord{
		ID:                id,
		Threshold:         0.75,
		TotalInvoices:     3,
		TotalBank:         3,
		MatchCount:        1,
		UnmatchedInvoices: 2,
		UnmatchedBank:     2,
		CandidateCount:    9,
		CrossProductSize:  9,
		TotalInvoiceCents: 450000,
		CreatedAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func testMatch(matchID, runID string, invRef, bankRef int) storage.MatchRecord {
	return storage.MatchRecord{
		MatchID:            matchID,
		RunID:              runID,
		InvoiceRef:         invRef,
		BankRef:            bankRef,
		InvoiceDescription: "Consulting services",
		BankDescription:    "Payment to Acme Corp",
		InvoiceAmountCents: 150000,
		BankAmountCents:    -150000,
		Score:              0.91,
		IsManual:           false,
		CreatedAt:          time.Now().UTC().Truncate(time.Second),
	}
}

func TestStorage_SaveAndGetRun(t *testing.T) {
	s := newTestStorage(t)

	run := testRun("REC-20240115-AAAA0001")
	match := testMatch("m-1", run.ID, 0, 0)
	require.NoError(t, s.SaveRun(run, []storage.MatchRecord{match}))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Threshold, got.Threshold)
	assert.Equal(t, run.MatchCount, got.MatchCount)
	assert.Equal(t, run.TotalInvoiceCents, got.TotalInvoiceCents)

	matches, err := s.GetMatches(run.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m-1", matches[0].MatchID)
	assert.Equal(t, int64(-150000), matches[0].BankAmountCents)
	assert.Equal(t, 0.91, matches[0].Score)
}

func TestStorage_GetRunNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetRun("REC-20240101-MISSING1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_ResaveReplacesRun(t *testing.T) {
	s := newTestStorage(t)

	run := testRun("REC-20240115-AAAA0002")
	require.NoError(t, s.SaveRun(run, []storage.MatchRecord{testMatch("m-1", run.ID, 0, 0)}))

	run.MatchCount = 2
	require.NoError(t, s.SaveRun(run, []storage.MatchRecord{
		testMatch("m-2", run.ID, 0, 0),
		testMatch("m-3", run.ID, 1, 1),
	}))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MatchCount)

	matches, err := s.GetMatches(run.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 2, "old matches cascade away with the replaced run")
}

func TestStorage_ListRuns(t *testing.T) {
	s := newTestStorage(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		run := testRun("REC-20240115-AAAA000" + string(rune('3'+i)))
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveRun(run, nil))
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt), "newest first")
}

func TestStorage_SaveMatchBumpsCounters(t *testing.T) {
	s := newTestStorage(t)

	run := testRun("REC-20240115-AAAA0009")
	require.NoError(t, s.SaveRun(run, nil))

	m := testMatch("m-manual", run.ID, 1, 2)
	m.IsManual = true
	m.Score = 1.0
	require.NoError(t, s.SaveMatch(&m))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.MatchCount+1, got.MatchCount)
	assert.Equal(t, run.UnmatchedInvoices-1, got.UnmatchedInvoices)
	assert.Equal(t, run.UnmatchedBank-1, got.UnmatchedBank)
}

func TestStorage_SaveMatchUnknownRun(t *testing.T) {
	s := newTestStorage(t)

	m := testMatch("m-orphan", "REC-20240101-NOPE0000", 0, 0)
	assert.Error(t, s.SaveMatch(&m))
}

func TestStorage_SaveMatchRejectsDuplicateRef(t *testing.T) {
	s := newTestStorage(t)

	run := testRun("REC-20240115-AAAA0010")
	require.NoError(t, s.SaveRun(run, []storage.MatchRecord{testMatch("m-1", run.ID, 0, 0)}))

	// same invoice ref again violates the one-match-per-record constraint
	dup := testMatch("m-2", run.ID, 0, 1)
	assert.Error(t, s.SaveMatch(&dup))
}

func TestStorage_DeleteMatch(t *testing.T) {
	s := newTestStorage(t)

	run := testRun("REC-20240115-AAAA0011")
	require.NoError(t, s.SaveRun(run, []storage.MatchRecord{testMatch("m-1", run.ID, 0, 0)}))

	require.NoError(t, s.DeleteMatch("m-1"))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.MatchCount-1, got.MatchCount)
	assert.Equal(t, run.UnmatchedInvoices+1, got.UnmatchedInvoices)

	matches, err := s.GetMatches(run.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.ErrorIs(t, s.DeleteMatch("m-1"), storage.ErrNotFound)
}
