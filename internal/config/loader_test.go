package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8080
  mode: "debug"
  read_timeout: 10s
database:
  host: "db.local"
  port: 5432
  user: "quiz"
  password: "secret"
  db_name: "quiz"
  auto_migrate: true
redis:
  addr: "redis.local:6379"
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  group_id: "exporters"
minio:
  enabled: true
  endpoint: "minio.local:9000"
  access_key: "key"
  secret_key: "secret"
quiz:
  api_base_url: "http://quiz.local:8080"
  remote_timeout: 5s
  freshness_window: 1h
  default_language: "pt"
log:
  level: "debug"
  format: "console"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "exporters", cfg.Kafka.GroupID)
	assert.Equal(t, "http://quiz.local:8080", cfg.Quiz.APIBaseURL)
	assert.Equal(t, time.Hour, cfg.Quiz.FreshnessWindow)
	assert.Equal(t, "pt", cfg.Quiz.DefaultLanguage)
	assert.Equal(t, "console", cfg.Log.Format)
	// defaulted
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "server: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "quiz:\n  default_language: \"fr\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quiz.default_language")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("PQUIZ_SERVER_PORT", "9999")
	t.Setenv("PQUIZ_DATABASE_HOST", "db-override")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db-override", cfg.Database.Host)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PQUIZ_QUIZ_DEFAULT_LANGUAGE", "es")
	t.Setenv("PQUIZ_REDIS_ADDR", "cache:6380")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "es", cfg.Quiz.DefaultLanguage)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoadOrDefault_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, cfg.Quiz.DefaultLanguage)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_InvokesCallbackOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := validConfigYAML + "\nworker:\n  concurrency: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 9, cfg.Worker.Concurrency)
	case <-time.After(5 * time.Second):
		t.Skip("filesystem notifications not delivered in this environment")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}
