package db

import (
	"encoding/json"
	"log/slog"
)

func ConfigToRawMessage(cfg StoreConfig) json.RawMessage {
	bytes, err := json.Marshal(cfg)
	if err != nil {
		slog.Error("error marshalling store config", "err", err)
		return json.RawMessage("{}")
	}
	return json.RawMessage(bytes)
}

func RawMessageOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
