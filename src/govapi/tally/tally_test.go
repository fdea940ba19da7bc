package tally

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/onchainkit/govtoolkit/src/govapi/data"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, data.Migrate(db))
	return db
}

func seed(t *testing.T, db *gorm.DB, quorum string) (*types.Proposal, []types.ProposalOption) {
	t.Helper()
	prop := types.Proposal{
		ID:         "prop-1",
		OrgID:      "org-1",
		Title:      "Treasury spend",
		StartsAt:   time.Now().Add(-time.Hour),
		EndsAt:     time.Now().Add(time.Hour),
		Quorum:     quorum,
		Status:     types.StatusActive,
		StrategyID: "strat-1",
	}
	require.NoError(t, db.Create(&prop).Error)
	opts := []types.ProposalOption{
		{ID: "opt-0", ProposalID: prop.ID, Index: 0, Title: "Yes"},
		{ID: "opt-1", ProposalID: prop.ID, Index: 1, Title: "No"},
		{ID: "opt-2", ProposalID: prop.ID, Index: 2, Title: "Abstain"},
	}
	require.NoError(t, db.Create(&opts).Error)
	return &prop, opts
}

func castVote(t *testing.T, db *gorm.DB, id, optionID string, weight int64) {
	t.Helper()
	require.NoError(t, db.Create(&types.Vote{
		ID:         id,
		ProposalID: "prop-1",
		WalletID:   "wallet-" + id,
		OptionID:   optionID,
		Weight:     decimal.NewFromInt(weight),
		Signature:  "0x00",
		SignedAt:   time.Now(),
	}).Error)
}

func TestComputeSumsPerOption(t *testing.T) {
	db := testDB(t)
	prop, opts := seed(t, db, "")

	castVote(t, db, "v1", "opt-0", 1)
	castVote(t, db, "v2", "opt-0", 2)
	castVote(t, db, "v3", "opt-1", 1)

	res, err := Compute(db, prop, opts)
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(4)), "got total %s", res.Total)

	require.Len(t, res.Options, 3)
	assert.True(t, res.Options[0].Weight.Equal(decimal.NewFromInt(3)))
	assert.True(t, res.Options[0].Percent.Equal(decimal.NewFromInt(75)))
	assert.True(t, res.Options[1].Weight.Equal(decimal.NewFromInt(1)))
	assert.True(t, res.Options[1].Percent.Equal(decimal.NewFromInt(25)))
	assert.True(t, res.Options[2].Weight.IsZero())
	assert.True(t, res.Options[2].Percent.IsZero())

	// recomputation reads the store, so it is idempotent
	again, err := Compute(db, prop, opts)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestComputeEmptyProposal(t *testing.T) {
	db := testDB(t)
	prop, opts := seed(t, db, "")

	res, err := Compute(db, prop, opts)
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
	require.Len(t, res.Options, 3)
	for _, o := range res.Options {
		assert.True(t, o.Weight.IsZero())
		assert.True(t, o.Percent.IsZero(), "no division by a zero total")
	}
	assert.False(t, res.QuorumReached)
}

func TestComputeQuorum(t *testing.T) {
	db := testDB(t)
	prop, opts := seed(t, db, "3")

	castVote(t, db, "v1", "opt-0", 2)
	res, err := Compute(db, prop, opts)
	require.NoError(t, err)
	assert.False(t, res.QuorumReached)

	castVote(t, db, "v2", "opt-1", 1)
	res, err = Compute(db, prop, opts)
	require.NoError(t, err)
	assert.True(t, res.QuorumReached, "quorum compares against total turnout, not the winner")
}
