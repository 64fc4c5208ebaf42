package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type config struct {
	BindAddr string `json:"bindAddr"`
	Port     int    `json:"port"`
	LogLevel string `json:"logLevel"`

	RedisURL      string        `json:"redisURL"`
	RedisTTLHours int           `json:"redisTTLHours"`
	MaxRequestWait time.Duration `json:"maxRequestWait"`

	TitleIndexPath string `json:"titleIndexPath"`

	BaseURLsYTS    []string `json:"baseURLsYTS"`
	BaseURLsEZTV   []string `json:"baseURLsEZTV"`
	BaseURLsTGX    []string `json:"baseURLsTGX"`
	BaseURLsApibay []string `json:"baseURLsApibay"`
	BaseURLs1337X  []string `json:"baseURLs1337X"`
	TGXDetailLimit int      `json:"tgxDetailLimit"`

	FlareSolverrURL          string        `json:"flareSolverrURL"`
	FlareSolverrSessions     int           `json:"flareSolverrSessions"`
	FlareSolverrRefreshMs    int           `json:"flareSolverrRefreshMs"`
	FlareSolverrRefreshEvery time.Duration `json:"-"`

	EnvPrefix string `json:"envPrefix"`
}

func parseConfig() config {
	result := config{}

	var (
		bindAddr       = flag.String("bindAddr", "0.0.0.0", `Local interface address to bind to. "0.0.0.0" binds to all network interfaces.`)
		port           = flag.Int("port", 8080, "Port to listen on")
		logLevel       = flag.String("logLevel", "info", `Log level. Can be "debug", "info", "warn", "error".`)
		redisURL       = flag.String("redisURL", "", "Redis connection URL for the result cache. Empty falls back to an in-memory cache.")
		redisTTLHours  = flag.Int("redisTTLHours", 24, "TTL in hours for cached stream responses")
		maxRequestWait = flag.Duration("maxRequestWait", 10*time.Second, "Request-wide deadline for scraper fan-out. The format must be acceptable by Go's 'time.ParseDuration()'.")
		titleIndexPath = flag.String("titleIndexPath", "", "Path to a tconst-sorted title.basics.tsv file")
		ytsURL         = flag.String("ytsURL", "https://yts.mx", "Comma-separated base URLs for YTS")
		eztvURL        = flag.String("eztvURL", "https://eztvx.to", "Comma-separated base URLs for EZTV")
		tgxURL         = flag.String("tgxURL", "https://torrentgalaxy.to", "Comma-separated base URLs for TorrentGalaxy")
		apibayURL      = flag.String("apibayURL", "https://apibay.org", "Comma-separated base URLs for ApiBay")
		x1337xURL      = flag.String("x1337xURL", "https://1337x.to", "Comma-separated base URLs for 1337x")
		tgxDetailLimit = flag.Int("tgxDetailLimit", 10, "Max number of TorrentGalaxy result pages fetched for a magnet per request")
		flareSolverrURL        = flag.String("flareSolverrURL", "", "Base URL of a FlareSolverr-compatible bypass service. Empty disables the bypass pool entirely.")
		flareSolverrSessions   = flag.Int("flareSolverrSessions", 2, "Sessions to keep warm per scraper's bypass pool")
		flareSolverrRefreshMs  = flag.Int("flareSolverrRefreshMs", 5*60*1000, "Interval in milliseconds between bypass-session refresh sweeps")
		envPrefix              = flag.String("envPrefix", "", "Prefix for environment variables")
	)

	flag.Parse()

	if *envPrefix != "" && !strings.HasSuffix(*envPrefix, "_") {
		*envPrefix += "_"
	}
	result.EnvPrefix = *envPrefix

	result.BindAddr = envOrFlagString(*envPrefix, "BIND_ADDR", "bindAddr", *bindAddr)
	result.Port = envOrFlagInt(*envPrefix, "PORT", "port", *port)
	result.LogLevel = envOrFlagString(*envPrefix, "LOG_LEVEL", "logLevel", *logLevel)
	result.RedisURL = envOrFlagString(*envPrefix, "REDIS_URL", "redisURL", *redisURL)
	result.RedisTTLHours = envOrFlagInt(*envPrefix, "REDIS_TTL_HOURS", "redisTTLHours", *redisTTLHours)
	result.MaxRequestWait = envOrFlagDuration(*envPrefix, "MAX_REQUEST_WAIT_SECONDS", "maxRequestWait", *maxRequestWait, true)
	result.TitleIndexPath = envOrFlagString(*envPrefix, "TITLE_INDEX_PATH", "titleIndexPath", *titleIndexPath)

	result.BaseURLsYTS = splitURLs(envOrFlagString(*envPrefix, "YTS_URL", "ytsURL", *ytsURL))
	result.BaseURLsEZTV = splitURLs(envOrFlagString(*envPrefix, "EZTV_URL", "eztvURL", *eztvURL))
	result.BaseURLsTGX = splitURLs(envOrFlagString(*envPrefix, "TGX_URL", "tgxURL", *tgxURL))
	result.BaseURLsApibay = splitURLs(envOrFlagString(*envPrefix, "APIBAY_URL", "apibayURL", *apibayURL))
	result.BaseURLs1337X = splitURLs(envOrFlagString(*envPrefix, "X1337X_URL", "x1337xURL", *x1337xURL))
	result.TGXDetailLimit = envOrFlagInt(*envPrefix, "TGX_DETAIL_LIMIT", "tgxDetailLimit", *tgxDetailLimit)

	result.FlareSolverrURL = envOrFlagString(*envPrefix, "FLARESOLVERR_URL", "flareSolverrURL", *flareSolverrURL)
	result.FlareSolverrSessions = envOrFlagInt(*envPrefix, "FLARESOLVERR_SESSIONS", "flareSolverrSessions", *flareSolverrSessions)
	result.FlareSolverrRefreshMs = envOrFlagInt(*envPrefix, "FLARESOLVERR_SESSION_REFRESH_MS", "flareSolverrRefreshMs", *flareSolverrRefreshMs)
	result.FlareSolverrRefreshEvery = time.Duration(result.FlareSolverrRefreshMs) * time.Millisecond

	return result
}

func splitURLs(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// isArgSet returns true if arg (without "-" prefix) was actually set as
// a command line flag, so env vars only apply as a fallback.
func isArgSet(arg string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == arg {
			found = true
		}
	})
	return found
}

func envOrFlagString(prefix, envName, flagName, current string) string {
	if isArgSet(flagName) {
		return current
	}
	if val, ok := os.LookupEnv(prefix + envName); ok {
		return val
	}
	return current
}

func envOrFlagInt(prefix, envName, flagName string, current int) int {
	if isArgSet(flagName) {
		return current
	}
	val, ok := os.LookupEnv(prefix + envName)
	if !ok {
		return current
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		fatalLogger().Fatal("Couldn't convert environment variable from string to int", zap.String("envVar", envName), zap.Error(err))
	}
	return n
}

func envOrFlagDuration(prefix, envName, flagName string, current time.Duration, seconds bool) time.Duration {
	if isArgSet(flagName) {
		return current
	}
	val, ok := os.LookupEnv(prefix + envName)
	if !ok {
		return current
	}
	if seconds {
		n, err := strconv.Atoi(val)
		if err != nil {
			fatalLogger().Fatal("Couldn't convert environment variable from string to int", zap.String("envVar", envName), zap.Error(err))
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		fatalLogger().Fatal("Couldn't convert environment variable from string to time.Duration", zap.String("envVar", envName), zap.Error(err))
	}
	return d
}

// fatalLogger is a throwaway logger for config-parsing fatal errors,
// which happen before the real configured logger exists.
func fatalLogger() *zap.Logger {
	l, _ := zap.NewProduction()
	return l
}
