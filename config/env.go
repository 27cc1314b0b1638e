package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAppEnv        = "local"
	defaultAPIBaseURL    = "http://localhost:8000/api"
	defaultAPITimeout    = 30 * time.Second
	defaultAPIRetries    = 1
	defaultPhotoMaxBytes = 10 << 20
	defaultSessionDriver = "file"
	defaultSessionPath   = ".motoadmin/session"
	defaultRedisAddr     = "localhost:6379"
	defaultAppKey        = "change-me-in-production"
	defaultStorageRoot   = "storage"
	defaultCategories    = "catalog/categories.json"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load merges config/app.json, config/app.yaml and .env over the defaults.
// Process environment variables always win. Safe to call many times.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", "config/app.yaml", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":            defaultAppEnv,
		"API_BASE_URL":       defaultAPIBaseURL,
		"API_TIMEOUT":        defaultAPITimeout.String(),
		"API_RETRIES":        strconv.Itoa(defaultAPIRetries),
		"PHOTO_MAX_BYTES":    strconv.Itoa(defaultPhotoMaxBytes),
		"SESSION_DRIVER":     defaultSessionDriver,
		"SESSION_PATH":       defaultSessionPath,
		"REDIS_ADDR":         defaultRedisAddr,
		"REDIS_PASSWORD":     "",
		"APP_KEY":            defaultAppKey,
		"STORAGE_DISK":       "local",
		"STORAGE_LOCAL_ROOT": defaultStorageRoot,
		"CATEGORIES_PATH":    defaultCategories,
		"LOG_MONGO_DB":       "motoportal",
	}
}

func AppEnv() string { _ = Load(); return get("APP_ENV", defaultAppEnv) }

// APIBaseURL is the REST backend root, without a trailing slash.
func APIBaseURL() string {
	_ = Load()
	return strings.TrimRight(get("API_BASE_URL", defaultAPIBaseURL), "/")
}

// APITimeout is the per-attempt timeout of a backend call.
func APITimeout() time.Duration {
	_ = Load()
	d, err := time.ParseDuration(get("API_TIMEOUT", ""))
	if err != nil || d <= 0 {
		return defaultAPITimeout
	}
	return d
}

// APIRetries is the number of attempts for idempotent reads. Mutations are
// always sent once.
func APIRetries() int {
	_ = Load()
	return getInt("API_RETRIES", defaultAPIRetries)
}

func PhotoMaxBytes() int64 {
	_ = Load()
	return int64(getInt("PHOTO_MAX_BYTES", defaultPhotoMaxBytes))
}

func SessionDriver() string {
	_ = Load()
	switch d := strings.ToLower(get("SESSION_DRIVER", defaultSessionDriver)); d {
	case "file", "redis", "memory":
		return d
	default:
		return defaultSessionDriver
	}
}

func SessionPath() string   { _ = Load(); return get("SESSION_PATH", defaultSessionPath) }
func RedisAddr() string     { _ = Load(); return get("REDIS_ADDR", defaultRedisAddr) }
func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }
func AppKey() string        { _ = Load(); return get("APP_KEY", defaultAppKey) }

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string   { _ = Load(); return get("STORAGE_DISK", "local") }
func StorageLocalRoot() string { _ = Load(); return get("STORAGE_LOCAL_ROOT", defaultStorageRoot) }
func StorageURL() string       { _ = Load(); return get("STORAGE_URL", "") }
func CategoriesPath() string   { _ = Load(); return get("CATEGORIES_PATH", defaultCategories) }

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Logging ──────────────────────────────────────────────────────────────────

func LogMongoURI() string { _ = Load(); return get("LOG_MONGO_URI", "") }
func LogMongoDB() string  { _ = Load(); return get("LOG_MONGO_DB", "motoportal") }

func loadFromFiles(jsonPath, yamlPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(jsonPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeYAMLConfig(yamlPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeDotEnv(envPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	mergeRaw(raw, out)
	return nil
}

func mergeYAMLConfig(path string, out map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	mergeRaw(raw, out)
	return nil
}

// mergeRaw copies scalar values; nested objects are ignored.
func mergeRaw(raw map[string]interface{}, out map[string]string) {
	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		switch v := val.(type) {
		case string:
			out[k] = strings.TrimSpace(v)
		case bool, int, int64, float64:
			out[k] = fmt.Sprint(v)
		}
	}
}

func mergeDotEnv(path string, out map[string]string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for key, value := range env {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = value
	}
	return nil
}

func get(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(get(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}
