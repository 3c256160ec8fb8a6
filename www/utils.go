package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/angas/hems-go/types/maybe"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("writing json response failed", slog.Any("error", err))
	}
}

func maybeToPtr(v maybe.Maybe[float64]) *float64 {
	if !v.IsValid() {
		return nil
	}
	value := v.Value()
	return &value
}
