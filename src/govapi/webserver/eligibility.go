package webserver

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/onchainkit/govtoolkit/src/govapi/strategy"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"gorm.io/gorm"
)

type Eligibility struct {
	db   *gorm.DB
	eval *strategy.Evaluator
}

func NewEligibility(db *gorm.DB, eval *strategy.Evaluator) Eligibility {
	return Eligibility{db: db, eval: eval}
}

// Check is the client-side pre-check. The weight reported here is advisory;
// the ballot pipeline re-derives it at commit time.
func (e Eligibility) Check(c *gin.Context) {
	var req struct {
		ProposalID string `json:"proposalId" binding:"required"`
		Address    string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}

	var prop types.Proposal
	if err := e.db.Preload("Strategy").First(&prop, "id = ?", req.ProposalID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "proposal not found"})
		return
	}

	weight := e.eval.Evaluate(c.Request.Context(), prop.Strategy.Type, []byte(prop.Strategy.Config), common.HexToAddress(req.Address), 0)
	c.JSON(http.StatusOK, gin.H{
		"eligible": weight.IsPositive(),
		"weight":   weight.String(),
	})
}
