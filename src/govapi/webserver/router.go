package webserver

import (
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/onchainkit/govtoolkit/src/govapi/ballot"
	"github.com/onchainkit/govtoolkit/src/govapi/config"
	"github.com/onchainkit/govtoolkit/src/govapi/nonce"
	"github.com/onchainkit/govtoolkit/src/govapi/ratelimit"
	"github.com/onchainkit/govtoolkit/src/govapi/strategy"
	"github.com/onchainkit/govtoolkit/src/shared/chain"
	"github.com/onchainkit/govtoolkit/src/shared/eip712"
	"github.com/onchainkit/govtoolkit/src/shared/token"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, reader chain.Reader) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	codec, err := token.NewCodec([]byte(cfg.LinkSecret))
	if err != nil {
		log.Fatalf("link token codec: %v", err)
	}
	domain := eip712.NewDomain(cfg.ChainID, common.HexToAddress(cfg.GovernorAddress))
	eval := strategy.NewEvaluator(db, reader)
	ledger := nonce.NewLedger(db)
	verifier := ballot.NewVerifier(db, eval, ledger, domain)

	var limiter ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewRedisLimiter(rdb)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	linkH := NewLink(db, codec, []byte(cfg.JWTSecret), uint64(cfg.ChainID))
	eligH := NewEligibility(db, eval)
	nonceH := NewNonces(db, ledger, reader)
	propH := NewProposals(db, limiter)
	voteH := NewVotes(db, verifier, rdb)

	v1 := r.Group("/v1")
	{
		v1.POST("/link", linkH.Complete)
		v1.POST("/eligibility", eligH.Check)
		v1.POST("/votes", voteH.Cast)
		v1.GET("/proposals", propH.List)
		v1.GET("/proposals/:id", propH.Get)
		v1.GET("/proposals/:id/tally", voteH.Summary)

		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.POST("/proposals", propH.Create)
		secured.POST("/proposals/:id/nonce", nonceH.Issue)
	}
}
