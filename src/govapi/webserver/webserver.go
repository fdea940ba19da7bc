package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/onchainkit/govtoolkit/src/govapi/config"
	"github.com/onchainkit/govtoolkit/src/shared/chain"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, reader chain.Reader) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb, reader)
	return g
}
