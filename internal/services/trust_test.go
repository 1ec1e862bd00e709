package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusuapp/osusu-backend/internal/types"
)

func entriesOf(entryTypes ...types.LedgerEntryType) []*types.LedgerEntry {
	entries := make([]*types.LedgerEntry, 0, len(entryTypes))
	for _, t := range entryTypes {
		entries = append(entries, &types.LedgerEntry{Type: t})
	}
	return entries
}

func TestFoldScoreEmptyHistory(t *testing.T) {
	assert.Equal(t, types.BaseTrustScore, FoldScore(nil))
	assert.Equal(t, types.BaseTrustScore, FoldScore(entriesOf()))
}

func TestFoldScoreDeltas(t *testing.T) {
	cases := []struct {
		name  string
		types []types.LedgerEntryType
		want  int
	}{
		{"marked paid", entryTypes(types.EntryContributionMarked), 105},
		{"confirmed", entryTypes(types.EntryContributionConfirmed), 110},
		{"marked unpaid", entryTypes(types.EntryContributionUnmarked), 70},
		{"overdue", entryTypes(types.EntryContributionOverdue), 90},
		{"removed", entryTypes(types.EntryMemberRemoved), 0},
		{"mark then confirm", entryTypes(types.EntryContributionMarked, types.EntryContributionConfirmed), 115},
		{"neutral types ignored", entryTypes(types.EntryCircleCreated, types.EntryMemberApproved, types.EntryPayoutDistributed, types.EntryContributionFinalized), 100},
		{"unknown type ignored", []types.LedgerEntryType{"SOMETHING_NEW"}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FoldScore(entriesOf(tc.types...)))
		})
	}
}

func entryTypes(ts ...types.LedgerEntryType) []types.LedgerEntryType { return ts }

func TestFoldScoreClampsAtFloor(t *testing.T) {
	// Two removals would be -200 from base; the floor holds at 0.
	got := FoldScore(entriesOf(types.EntryMemberRemoved, types.EntryMemberRemoved))
	assert.Equal(t, types.MinTrustScore, got)
}

func TestFoldScoreClampsAtCeiling(t *testing.T) {
	var history []types.LedgerEntryType
	for i := 0; i < 100; i++ {
		history = append(history, types.EntryContributionConfirmed)
	}
	got := FoldScore(entriesOf(history...))
	assert.Equal(t, types.MaxTrustScore, got)
}

func TestFoldScoreOrderIndependent(t *testing.T) {
	forward := entriesOf(types.EntryContributionMarked, types.EntryContributionOverdue, types.EntryContributionConfirmed)
	backward := entriesOf(types.EntryContributionConfirmed, types.EntryContributionOverdue, types.EntryContributionMarked)
	assert.Equal(t, FoldScore(forward), FoldScore(backward))
}

func TestRecomputeWritesScoreBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t)

	userID := user.ID
	for _, entryType := range []types.LedgerEntryType{
		types.EntryContributionMarked,
		types.EntryContributionConfirmed,
		types.EntryContributionOverdue,
	} {
		_, err := env.ledger.Append(ctx, nil, AppendInput{
			Type:   entryType,
			UserID: &userID,
		})
		require.NoError(t, err)
	}

	score, err := env.trust.Recompute(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 105, score)

	stored, err := env.users.GetByID(ctx, nil, userID)
	require.NoError(t, err)
	assert.Equal(t, 105, stored.TrustScore)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t)

	userID := user.ID
	_, err := env.ledger.Append(ctx, nil, AppendInput{
		Type:   types.EntryContributionMarked,
		UserID: &userID,
	})
	require.NoError(t, err)

	first, err := env.trust.Recompute(ctx, userID)
	require.NoError(t, err)
	second, err := env.trust.Recompute(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
