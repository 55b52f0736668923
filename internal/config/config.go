package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken      string
	ChiefAdminIDs []int64
	TechLeadID    int64
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
}

func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("config.Load: no .env file found - using env variables")
	}

	cfg := &Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("config.Load: BOT_TOKEN is required")
	}

	cfg.ChiefAdminIDs, err = parseIDList(os.Getenv("CHIEF_ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("config.Load: CHIEF_ADMIN_IDS: %w", err)
	}

	if len(cfg.ChiefAdminIDs) == 0 {
		return nil, fmt.Errorf("config.Load: CHIEF_ADMIN_IDS is required")
	}

	techLead := os.Getenv("TECH_LEAD_ID")
	if techLead == "" {
		return nil, fmt.Errorf("config.Load: TECH_LEAD_ID is required")
	}

	cfg.TechLeadID, err = strconv.ParseInt(techLead, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config.Load: TECH_LEAD_ID must be a telegram id: %w", err)
	}

	if cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("config.Load: DB_USER, DB_PASSWORD, DB_NAME are required")
	}

	if cfg.DBHost == "" {
		cfg.DBHost = "localhost"
	}

	if cfg.DBPort == "" {
		cfg.DBPort = "5432"
	}

	return cfg, nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}

		ids = append(ids, id)
	}

	return ids, nil
}
