package app

import (
	"time"

	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/utils"
)

type Config struct {
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	SLAPolicyFile       string
	EscalationInterval  time.Duration
	AutoNCDueDays       int
	ServerPort          string
	NotificationsEnable bool
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	slaPolicyFile := utils.GetEnv("SLA_POLICY_FILE", "", log)
	escalationIntervalMinutes := utils.GetEnvAsInt("SLA_CHECK_INTERVAL_MINUTES", 60, log)
	autoNCDueDays := utils.GetEnvAsInt("AUTO_NC_DUE_DAYS", 7, log)
	serverPort := utils.GetEnv("PORT", "8080", log)
	notifications := utils.GetEnv("REDIS_NOTIFICATIONS_ENABLED", "false", log)
	return Config{
		JWTSecretKey:        jwtSecretKey,
		AccessTokenTTL:      time.Duration(accessTokenTTLSeconds) * time.Second,
		SLAPolicyFile:       slaPolicyFile,
		EscalationInterval:  time.Duration(escalationIntervalMinutes) * time.Minute,
		AutoNCDueDays:       autoNCDueDays,
		ServerPort:          serverPort,
		NotificationsEnable: notifications == "true" || notifications == "1",
	}
}
