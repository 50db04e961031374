package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confweb/talkvote/internal/model"
)

func voteParams(sessionID string, round, index int, choice model.VoteChoice) model.CreateVoteParams {
	return model.CreateVoteParams{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Pair: model.Pair{
			Coordinate: model.Coordinate{Round: round, Index: index},
			Left:       "talk-left",
			Right:      "talk-right",
		},
		Choice:  choice,
		Version: model.VoteRecordVersion,
	}
}

func TestVoteRepository_Insert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewVotingSessionRepository(db.DB)
	repo := NewVoteRepository(db.DB)
	ctx := context.Background()
	session := createTestSession(t, sessions, "hash-vote", "fp-1")

	vote, err := repo.Insert(ctx, voteParams(session.ID, 0, 1, model.VoteChoiceA))
	require.NoError(t, err)
	assert.Equal(t, session.ID, vote.SessionID)
	assert.Equal(t, model.Coordinate{Round: 0, Index: 1}, vote.Coordinate())
	assert.Equal(t, "talk-left", vote.Winner())

	t.Run("rejects a second vote at the same coordinate", func(t *testing.T) {
		_, err := repo.Insert(ctx, voteParams(session.ID, 0, 1, model.VoteChoiceB))
		assert.ErrorIs(t, err, ErrDuplicateVote)

		votes, err := repo.ListBySession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, model.VoteChoiceA, votes[0].Choice)
	})

	t.Run("same coordinate in another session is allowed", func(t *testing.T) {
		other := createTestSession(t, sessions, "hash-other", "fp-1")
		_, err := repo.Insert(ctx, voteParams(other.ID, 0, 1, model.VoteChoiceB))
		require.NoError(t, err)
	})
}

func TestVoteRepository_ListAndCounts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewVotingSessionRepository(db.DB)
	repo := NewVoteRepository(db.DB)
	ctx := context.Background()
	session := createTestSession(t, sessions, "hash-list", "fp-1")

	latest, err := repo.LatestCoordinate(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, p := range []model.CreateVoteParams{
		voteParams(session.ID, 1, 0, model.VoteChoiceB),
		voteParams(session.ID, 0, 2, model.VoteChoiceSkip),
		voteParams(session.ID, 0, 0, model.VoteChoiceA),
	} {
		_, err := repo.Insert(ctx, p)
		require.NoError(t, err)
	}

	votes, err := repo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Equal(t, model.Coordinate{Round: 0, Index: 0}, votes[0].Coordinate())
	assert.Equal(t, model.Coordinate{Round: 1, Index: 0}, votes[2].Coordinate())

	latest, err = repo.LatestCoordinate(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, model.Coordinate{Round: 1, Index: 0}, *latest)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	count, err := repo.CountBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byChoice, err := repo.CountByChoice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, byChoice[model.VoteChoiceA])
	assert.Equal(t, 1, byChoice[model.VoteChoiceB])
	assert.Equal(t, 1, byChoice[model.VoteChoiceSkip])
}
