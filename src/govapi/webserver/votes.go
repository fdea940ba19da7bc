package webserver

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/onchainkit/govtoolkit/src/govapi/ballot"
	"github.com/onchainkit/govtoolkit/src/govapi/data"
	"github.com/onchainkit/govtoolkit/src/govapi/nonce"
	"github.com/onchainkit/govtoolkit/src/govapi/tally"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"github.com/onchainkit/govtoolkit/src/shared/eip712"
	"gorm.io/gorm"
)

type Votes struct {
	db       *gorm.DB
	verifier *ballot.Verifier
	rdb      *redis.Client
}

func NewVotes(db *gorm.DB, verifier *ballot.Verifier, rdb *redis.Client) Votes {
	return Votes{db: db, verifier: verifier, rdb: rdb}
}

func (v Votes) Cast(c *gin.Context) {
	var req struct {
		ProposalID string             `json:"proposalId" binding:"required"`
		OptionID   string             `json:"optionId" binding:"required"`
		Address    string             `json:"address" binding:"required"`
		Message    eip712.VoteMessage `json:"message" binding:"required"`
		Signature  string             `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	vote, err := v.verifier.Submit(c.Request.Context(), ballot.Submission{
		ProposalID: req.ProposalID,
		OptionID:   req.OptionID,
		Address:    req.Address,
		Message:    req.Message,
		Signature:  req.Signature,
	})
	if err != nil {
		status, msg := rejectionStatus(err)
		log.Printf("ballot rejected for %s on %s: %v", req.Address, req.ProposalID, err)
		c.JSON(status, gin.H{"err": msg})
		return
	}

	if v.rdb != nil {
		go data.PublishBallot(context.Background(), v.rdb, vote, req.Address)
	}
	c.JSON(http.StatusCreated, gin.H{"vote": vote})
}

func (v Votes) Summary(c *gin.Context) {
	var prop types.Proposal
	if err := v.db.First(&prop, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "proposal not found"})
		return
	}

	var opts []types.ProposalOption
	v.db.Where("proposal_id = ?", prop.ID).Order("option_index asc").Find(&opts)

	result, err := tally.Compute(v.db, &prop, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func rejectionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ballot.ErrPayloadMismatch):
		return http.StatusBadRequest, "payload mismatch"
	case errors.Is(err, ballot.ErrProposalNotFound):
		return http.StatusNotFound, "proposal not found"
	case errors.Is(err, ballot.ErrVotingNotStarted):
		return http.StatusForbidden, "voting not started"
	case errors.Is(err, ballot.ErrVotingClosed):
		return http.StatusForbidden, "voting closed"
	case errors.Is(err, ballot.ErrBallotExpired):
		return http.StatusBadRequest, "ballot expired"
	case errors.Is(err, ballot.ErrWalletNotLinked):
		return http.StatusUnauthorized, "wallet not linked"
	case errors.Is(err, nonce.ErrInvalidNonce):
		return http.StatusBadRequest, "invalid nonce"
	case errors.Is(err, nonce.ErrNonceExpired):
		return http.StatusBadRequest, "nonce expired"
	case errors.Is(err, ballot.ErrSnapshotMismatch):
		return http.StatusBadRequest, "snapshot block mismatch"
	case errors.Is(err, ballot.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid signature"
	case errors.Is(err, ballot.ErrNotEligible):
		return http.StatusForbidden, "not eligible"
	default:
		return http.StatusInternalServerError, "unable to process vote"
	}
}
