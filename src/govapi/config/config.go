package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MySQLDSN        string
	RedisURL        string
	JWTSecret       string
	LinkSecret      string
	RPCURL          string
	Port            string
	ChainID         int64
	GovernorAddress string
	CORSOrigins     []string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	chainID, err := strconv.ParseInt(getenv("CHAIN_ID", "84532"), 10, 64)
	if err != nil {
		log.Fatalf("invalid CHAIN_ID: %v", err)
	}
	return Config{
		MySQLDSN:        getenv("MYSQL_DSN", "govtoolkit:govtoolkit@tcp(127.0.0.1:3306)/govtoolkit?parseTime=true"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		LinkSecret:      getenv("LINK_SECRET", ""),
		RPCURL:          getenv("RPC_URL", "https://sepolia.base.org"),
		Port:            getenv("PORT", "8080"),
		ChainID:         chainID,
		GovernorAddress: getenv("GOVERNOR_ADDRESS", "0x0000000000000000000000000000000000000000"),
		CORSOrigins:     strings.Split(getenv("CORS_ORIGINS", "http://localhost:3000"), ","),
	}
}
