package startup

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	APIURL   string
	CacheDir string

	PerPage int
	Sort    string
	Order   string

	PollFastInterval time.Duration
	PollSlowInterval time.Duration
	RegenGrace       time.Duration
	RotationRollback bool

	RequestTimeout    time.Duration
	APIRateLimit      float64
	RegenRateLimit    float64
	ImageRetries      int
	ImageRetryBackoff time.Duration
	CacheMaxBytes     int64
	PrefetchWorkers   int

	StatusEnabled   bool
	StatusPort      string
	LogHealthChecks bool

	// Derived paths
	CacheDBPath string
	LogFilePath string
}

// Defaults
const (
	DefaultAPIURL        = api.DefaultBaseURL
	DefaultPerPage       = 100
	DefaultCacheMaxBytes = 256 << 20
	DefaultStatusPort    = "9191"
)

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Load reads and validates configuration from the environment after
// loading an optional .env file from the working directory. It logs
// nothing.
func Load() (*Config, error) {
	if err := LoadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	var errs []error
	cfg := &Config{
		APIURL:            strings.TrimRight(getEnv("API_URL", DefaultAPIURL), "/"),
		CacheDir:          getEnv("CACHE_DIR", defaultCacheDir()),
		Sort:              getEnv("SORT", api.SortDateTaken),
		Order:             getEnv("ORDER", api.OrderDesc),
		RotationRollback:  getEnvBool("ROTATION_ROLLBACK", true),
		StatusEnabled:     getEnvBool("STATUS_ENABLED", true),
		StatusPort:        getEnv("STATUS_PORT", DefaultStatusPort),
		LogHealthChecks:   getEnvBool("LOG_HEALTH_CHECKS", false),
		PerPage:           parseInt("PER_PAGE", DefaultPerPage, &errs),
		PollFastInterval:  parseDuration("POLL_FAST_INTERVAL", 2*time.Second, &errs),
		PollSlowInterval:  parseDuration("POLL_SLOW_INTERVAL", 30*time.Second, &errs),
		RegenGrace:        parseDuration("REGEN_GRACE", 5*time.Second, &errs),
		RequestTimeout:    parseDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
		APIRateLimit:      parseFloat("API_RATE_LIMIT", 20, &errs),
		RegenRateLimit:    parseFloat("REGEN_RATE_LIMIT", 4, &errs),
		ImageRetries:      parseInt("IMAGE_RETRIES", 5, &errs),
		ImageRetryBackoff: parseDuration("IMAGE_RETRY_BACKOFF", time.Second, &errs),
		CacheMaxBytes:     int64(parseInt("CACHE_MAX_BYTES", DefaultCacheMaxBytes, &errs)),
		PrefetchWorkers:   parseInt("PREFETCH_WORKERS", 0, &errs),
	}

	errs = append(errs, cfg.Validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cacheDir, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	cfg.CacheDir = cacheDir
	cfg.CacheDBPath = filepath.Join(cacheDir, "images.db")
	cfg.LogFilePath = filepath.Join(cacheDir, "bokeh-viewer.log")

	return cfg, nil
}

// Validate checks value ranges and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_URL must be an http(s) URL, got %q", c.APIURL))
	}
	if c.PerPage < 1 || c.PerPage > 1000 {
		errs = append(errs, fmt.Errorf("PER_PAGE must be between 1 and 1000, got %d", c.PerPage))
	}
	if c.Sort != api.SortDateTaken && c.Sort != api.SortCreatedAt {
		errs = append(errs, fmt.Errorf("SORT must be %s or %s, got %q", api.SortDateTaken, api.SortCreatedAt, c.Sort))
	}
	if c.Order != api.OrderAsc && c.Order != api.OrderDesc {
		errs = append(errs, fmt.Errorf("ORDER must be asc or desc, got %q", c.Order))
	}
	for name, d := range map[string]time.Duration{
		"POLL_FAST_INTERVAL":  c.PollFastInterval,
		"POLL_SLOW_INTERVAL":  c.PollSlowInterval,
		"REGEN_GRACE":         c.RegenGrace,
		"REQUEST_TIMEOUT":     c.RequestTimeout,
		"IMAGE_RETRY_BACKOFF": c.ImageRetryBackoff,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if c.PollFastInterval > c.PollSlowInterval {
		errs = append(errs, fmt.Errorf("POLL_FAST_INTERVAL (%v) must not exceed POLL_SLOW_INTERVAL (%v)", c.PollFastInterval, c.PollSlowInterval))
	}
	if c.ImageRetries < 1 {
		errs = append(errs, fmt.Errorf("IMAGE_RETRIES must be at least 1, got %d", c.ImageRetries))
	}
	if c.RegenRateLimit < 0 || c.APIRateLimit < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.PrefetchWorkers < 0 {
		errs = append(errs, fmt.Errorf("PREFETCH_WORKERS must not be negative, got %d", c.PrefetchWorkers))
	}
	if port, err := strconv.Atoi(c.StatusPort); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("STATUS_PORT must be a port number, got %q", c.StatusPort))
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errs
}

// LoadConfig loads configuration like Load, prints the banner and logs the
// configuration block, and prepares the cache directory.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  API_URL:             %s", cfg.APIURL)
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  PER_PAGE:            %d", cfg.PerPage)
	logging.Info("  SORT / ORDER:        %s %s", cfg.Sort, cfg.Order)
	logging.Info("  POLL_FAST_INTERVAL:  %v", cfg.PollFastInterval)
	logging.Info("  POLL_SLOW_INTERVAL:  %v", cfg.PollSlowInterval)
	logging.Info("  REGEN_GRACE:         %v", cfg.RegenGrace)
	logging.Info("  ROTATION_ROLLBACK:   %v", cfg.RotationRollback)
	logging.Info("  REQUEST_TIMEOUT:     %v", cfg.RequestTimeout)
	logging.Info("  API_RATE_LIMIT:      %v/s", cfg.APIRateLimit)
	logging.Info("  REGEN_RATE_LIMIT:    %v/s", cfg.RegenRateLimit)
	logging.Info("  IMAGE_RETRIES:       %d (backoff %v)", cfg.ImageRetries, cfg.ImageRetryBackoff)
	logging.Info("  CACHE_MAX_BYTES:     %d", cfg.CacheMaxBytes)
	logging.Info("  STATUS_ENABLED:      %v", cfg.StatusEnabled)
	logging.Info("  STATUS_PORT:         %s", cfg.StatusPort)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := ensureDirectory(cfg.CacheDir, "cache"); err != nil {
		return nil, fmt.Errorf("cache directory error: %w", err)
	}
	if err := testWriteAccess(cfg.CacheDir); err != nil {
		return nil, fmt.Errorf("cache directory is not writable (required for the image cache): %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	return cfg, nil
}

// LogCacheInit logs image cache initialization
func LogCacheInit(path string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("IMAGE CACHE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s opened in %v", path, duration)
}

// LogBackendCheck logs the result of the first contact with the backend.
func LogBackendCheck(apiURL string, photos int, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BACKEND")
	logging.Info("------------------------------------------------------------")
	if err != nil {
		logging.Warn("  Backend at %s not reachable: %v", apiURL, err)
		logging.Warn("  The viewer will keep polling")
		return
	}
	logging.Info("  [OK] %s reports %d photos", apiURL, photos)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the status server routes at debug level.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STATUS SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	StartupDuration time.Duration
}

// LogServerStarted logs the status server endpoints.
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STATUS SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Health:          http://localhost:%s/healthz", config.Port)
	logging.Info("  Metrics:         http://localhost:%s/metrics", config.Port)
	logging.Info("  Gallery state:   http://localhost:%s/api/state", config.Port)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (%s)", reason)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := []string{
		"------------------------------------------------------------",
		"    __          __        __",
		"   / /_  ____  / /_____  / /_     _   __(_)__ _      _____  _____",
		"  / __ \\/ __ \\/ //_/ _ \\/ __ \\   | | / / / _ \\ | /| / / _ \\/ ___/",
		" / /_/ / /_/ / ,< /  __/ / / /   | |/ / /  __/ |/ |/ /  __/ /",
		"/_.___/\\____/_/|_|\\___/_/ /_/    |___/_/\\___/|__/|__/\\___/_/",
		"------------------------------------------------------------",
	}
	for _, line := range banner {
		logging.Info("%s", line)
	}
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
	}
	logging.Info("")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "bokeh-viewer")
	}
	return filepath.Join(os.TempDir(), "bokeh-viewer")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func parseInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return n
}

func parseFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, value))
		return defaultValue
	}
	return f
}

func parseDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}
