package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	value, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func GetBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// GetDuration accepts Go duration strings ("30s", "5m").
func GetDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// GetList splits a comma separated value, dropping empty items.
func GetList(key string, fallback []string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
