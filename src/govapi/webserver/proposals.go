package webserver

import (
	"html"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/onchainkit/govtoolkit/src/govapi/ratelimit"
	"github.com/onchainkit/govtoolkit/src/govapi/tally"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// moderatorRoles is the allow-list for proposal creation.
var moderatorRoles = []string{"ADMIN", "MODERATOR"}

type Proposals struct {
	db        *gorm.DB
	limiter   ratelimit.Limiter
	sanitizer *bluemonday.Policy
}

func NewProposals(db *gorm.DB, limiter ratelimit.Limiter) Proposals {
	// Strict sanitizer that still allows basic markdown-rendered formatting
	sanitizer := bluemonday.StrictPolicy()
	sanitizer.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote")
	sanitizer.AllowElements("ul", "ol", "li")
	sanitizer.AllowAttrs("href").OnElements("a")
	sanitizer.RequireParseableURLs(true)
	sanitizer.RequireNoFollowOnLinks(true)

	return Proposals{db: db, limiter: limiter, sanitizer: sanitizer}
}

func (p Proposals) Create(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req struct {
		OrgID       string    `json:"orgId" binding:"required"`
		Title       string    `json:"title" binding:"required,min=3,max=255"`
		Description string    `json:"description" binding:"required,min=10,max=10000"`
		StartsAt    time.Time `json:"startsAt" binding:"required"`
		EndsAt      time.Time `json:"endsAt" binding:"required"`
		Quorum      string    `json:"quorum" binding:"max=64"`
		Threshold   string    `json:"threshold" binding:"max=64"`
		StrategyID  string    `json:"strategyId" binding:"required"`
		Options     []struct {
			Title string `json:"title" binding:"required,min=1,max=255"`
		} `json:"options" binding:"required,min=2,max=10,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "endsAt must be after startsAt"})
		return
	}
	for _, field := range []string{req.Quorum, req.Threshold} {
		if field == "" {
			continue
		}
		if _, err := decimal.NewFromString(field); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "quorum and threshold must be decimal strings"})
			return
		}
	}

	var member types.OrgMember
	if err := p.db.First(&member, "org_id = ? AND identity_id = ? AND role IN ?", req.OrgID, ident.ID, moderatorRoles).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"err": "not authorized to create proposals"})
		return
	}

	if err := p.limiter.Consume(c.Request.Context(), "proposal-"+ident.ID, 3, time.Minute); err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"err": "slow down"})
		return
	}

	var strat types.Strategy
	if err := p.db.First(&strat, "id = ?", req.StrategyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "strategy not found"})
		return
	}
	if strat.OrgID != req.OrgID {
		c.JSON(http.StatusBadRequest, gin.H{"err": "strategy not available for this org"})
		return
	}

	prop := types.Proposal{
		ID:          uuid.NewString(),
		OrgID:       req.OrgID,
		Title:       html.EscapeString(req.Title),
		Description: p.sanitizer.Sanitize(req.Description),
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Quorum:      req.Quorum,
		Threshold:   req.Threshold,
		Status:      types.StatusActive,
		StrategyID:  strat.ID,
		CreatedByID: ident.ID,
	}
	opts := make([]types.ProposalOption, len(req.Options))
	for i, o := range req.Options {
		opts[i] = types.ProposalOption{
			ID:         uuid.NewString(),
			ProposalID: prop.ID,
			Index:      uint16(i),
			Title:      html.EscapeString(o.Title),
		}
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prop).Error; err != nil {
			return err
		}
		return tx.Create(&opts).Error
	})
	if err != nil {
		log.Printf("create proposal: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to create proposal"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proposal": prop, "options": opts})
}

func (p Proposals) Get(c *gin.Context) {
	var prop types.Proposal
	if err := p.db.Preload("Strategy").First(&prop, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "proposal not found"})
		return
	}

	var opts []types.ProposalOption
	p.db.Where("proposal_id = ?", prop.ID).Order("option_index asc").Find(&opts)

	result, err := tally.Compute(p.db, &prop, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": prop, "options": opts, "tally": result})
}

func (p Proposals) List(c *gin.Context) {
	orgID := c.Query("orgId")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "orgId required"})
		return
	}

	var props []types.Proposal
	p.db.Where("org_id = ?", orgID).Order("starts_at desc").Find(&props)
	c.JSON(http.StatusOK, gin.H{"proposals": props})
}
