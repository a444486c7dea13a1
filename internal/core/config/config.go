package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urbanperceptions/survey-client/internal/core/model"
)

type SessionCfg struct {
	Driver    string
	StateDir  string
	RedisAddr string
}

type Config struct {
	APIBaseURL string
	LogLevel   string

	// Study area fallback when the boundary service is unavailable.
	StudyBBox model.BBox

	// Category layer fetch policy.
	FirstLoadLimit int
	ViewportLimit  int
	FetchTimeout   time.Duration

	// Viewport refresh debounce.
	DebounceInterval time.Duration

	// Manual-shape duplicate heuristic: max per-axis center delta in degrees.
	DuplicateTolerance float64

	SearchCacheSize int

	Themes []string

	TestMode       bool
	TestModeSecret string

	Session SessionCfg
}

func FromEnv() Config {
	bbox := model.BBox{West: -9.25, South: 38.65, East: -9.05, North: 38.80}
	if v := os.Getenv("STUDY_BBOX"); v != "" {
		if b, err := model.ParseBBox(v); err == nil {
			bbox = b
		}
	}

	return Config{
		APIBaseURL: getenv("API_BASE_URL", "http://localhost:8000"),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		StudyBBox: bbox,

		FirstLoadLimit: getint("CATEGORY_FIRST_LOAD_LIMIT", 900),
		ViewportLimit:  getint("CATEGORY_VIEWPORT_LIMIT", 300),
		FetchTimeout:   getduration("CATEGORY_FETCH_TIMEOUT", 20*time.Second),

		DebounceInterval: getduration("VIEWPORT_DEBOUNCE", 400*time.Millisecond),

		DuplicateTolerance: getfloat("DUPLICATE_TOLERANCE_DEG", 1e-4),

		SearchCacheSize: getint("SEARCH_CACHE_SIZE", 128),

		Themes: getlist("THEMES", []string{"identity", "cultural_change", "cost_perception"}),

		TestMode:       getbool("TEST_MODE", false),
		TestModeSecret: getenv("TEST_MODE_SECRET", ""),

		Session: SessionCfg{
			Driver:    getenv("SESSION_DRIVER", "file"),
			StateDir:  getenv("SESSION_STATE_DIR", ".survey-state"),
			RedisAddr: getenv("SESSION_REDIS_ADDR", "localhost:6379"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "a,b,c" into a slice, skipping empty entries
func getlist(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
