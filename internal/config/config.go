package config

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campuskit/attendance-service/internal/utils"
)

type Config struct {
	AppName string
	AppPort string
	AppUrl  string

	// Database
	DBUrl         string
	RunMigrations bool

	// Redis (realtime fan-out)
	RedisUrl           string
	EventChannelPrefix string

	// Auth
	RSAPublicKey *rsa.PublicKey

	ChallengeTTL time.Duration
}

const (
	AppName                   = "attendance-service"
	DefaultChallengeTTL       = 45 * time.Second
	DefaultEventChannelPrefix = "attend"
)

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	appUrl := os.Getenv("APP_URL_FROM_ANYWHERE")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}
	runMigrations := os.Getenv("RUN_MIGRATIONS") == "true"

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		utils.Logger.Fatal("REDIS_URL env var is missing")
	}
	channelPrefix := os.Getenv("EVENT_CHANNEL_PREFIX")
	if channelPrefix == "" {
		channelPrefix = DefaultEventChannelPrefix
	}

	pubB64 := os.Getenv("JWT_PUBLIC_KEY_BASE64")
	if pubB64 == "" {
		utils.Logger.Fatal("JWT_PUBLIC_KEY_BASE64 env var is missing")
	}
	pubPEM, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("JWT_PUBLIC_KEY_BASE64 is not valid base64")
	}
	if block, _ := pem.Decode(pubPEM); block == nil {
		utils.Logger.Fatal("Failed to decode PEM block for JWT public key")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse JWT RSA public key")
	}

	challengeTTL := DefaultChallengeTTL
	if raw := os.Getenv("CHALLENGE_TTL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			utils.Logger.Fatalf("CHALLENGE_TTL_SECONDS invalid: %q", raw)
		}
		challengeTTL = time.Duration(secs) * time.Second
	}

	return &Config{
		AppName:            AppName,
		AppPort:            appPort,
		AppUrl:             appUrl,
		DBUrl:              dbURL,
		RunMigrations:      runMigrations,
		RedisUrl:           redisURL,
		EventChannelPrefix: channelPrefix,
		RSAPublicKey:       pubKey,
		ChallengeTTL:       challengeTTL,
	}
}

func (c *Config) Close() {}
