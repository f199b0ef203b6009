package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMultiDelay     = 5 * time.Second
	DefaultSpawnWindow    = 1
	DefaultRcloneConf     = "rclone.conf"
	DefaultRcloneConfDir  = "rclone"
	DefaultMaxGlobalTasks = 20
	DefaultMaxUserTasks   = 3
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	BotToken    string
	DownloadDir string
	DBPath      string
	LogLevel    string
	DeleteLinks bool

	// Upload destination defaults.
	DefaultUpload string // "gd", "rc" or "ddl"
	GDriveID      string
	RclonePath    string
	RcloneConf    string // shared credential file
	RcloneConfDir string // per-user credential files, keyed <user-id>.conf

	Quota   QuotaConfig
	Spawn   SpawnConfig
	Storage StorageConfig
}

// QuotaConfig bounds task admission. A zero limit means unlimited.
type QuotaConfig struct {
	MaxGlobalTasks   int
	MaxUserTasks     int
	DailyTaskLimit   int
	DailyLeechLimit  int64 // bytes
	DailyMirrorLimit int64 // bytes
}

// SpawnConfig paces multi/bulk chains.
type SpawnConfig struct {
	MultiDelay  time.Duration
	SpawnWindow int64 // concurrent follow-up submissions allowed
}

// StorageConfig selects the S3-compatible backend for "ddl" uploads.
type StorageConfig struct {
	Bucket    string
	KeyPrefix string
	Region    string
	Endpoint  string
}

// Load reads configuration from environment variables (MIRRORBOT_ prefix) and
// an optional config.yaml in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MIRRORBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bot_token", "")
	v.SetDefault("download_dir", "downloads")
	v.SetDefault("db_path", "data/mirrorbot.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("delete_links", false)
	v.SetDefault("default_upload", "gd")
	v.SetDefault("gdrive_id", "")
	v.SetDefault("rclone_path", "")
	v.SetDefault("rclone_conf", DefaultRcloneConf)
	v.SetDefault("rclone_conf_dir", DefaultRcloneConfDir)
	v.SetDefault("quota.max_global_tasks", DefaultMaxGlobalTasks)
	v.SetDefault("quota.max_user_tasks", DefaultMaxUserTasks)
	v.SetDefault("quota.daily_task_limit", 0)
	v.SetDefault("quota.daily_leech_limit", 0)
	v.SetDefault("quota.daily_mirror_limit", 0)
	v.SetDefault("spawn.multi_delay", DefaultMultiDelay)
	v.SetDefault("spawn.window", DefaultSpawnWindow)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.key_prefix", "mirror-tasks")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	cfg := &Config{
		BotToken:      v.GetString("bot_token"),
		DownloadDir:   v.GetString("download_dir"),
		DBPath:        v.GetString("db_path"),
		LogLevel:      v.GetString("log_level"),
		DeleteLinks:   v.GetBool("delete_links"),
		DefaultUpload: v.GetString("default_upload"),
		GDriveID:      v.GetString("gdrive_id"),
		RclonePath:    v.GetString("rclone_path"),
		RcloneConf:    v.GetString("rclone_conf"),
		RcloneConfDir: v.GetString("rclone_conf_dir"),
		Quota: QuotaConfig{
			MaxGlobalTasks:   v.GetInt("quota.max_global_tasks"),
			MaxUserTasks:     v.GetInt("quota.max_user_tasks"),
			DailyTaskLimit:   v.GetInt("quota.daily_task_limit"),
			DailyLeechLimit:  v.GetInt64("quota.daily_leech_limit"),
			DailyMirrorLimit: v.GetInt64("quota.daily_mirror_limit"),
		},
		Spawn: SpawnConfig{
			MultiDelay:  v.GetDuration("spawn.multi_delay"),
			SpawnWindow: v.GetInt64("spawn.window"),
		},
		Storage: StorageConfig{
			Bucket:    v.GetString("storage.bucket"),
			KeyPrefix: v.GetString("storage.key_prefix"),
			Region:    v.GetString("storage.region"),
			Endpoint:  v.GetString("storage.endpoint"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "MIRRORBOT_BOT_TOKEN")
	}
	if c.DownloadDir == "" {
		missing = append(missing, "MIRRORBOT_DOWNLOAD_DIR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.DefaultUpload {
	case "gd", "rc", "ddl":
	default:
		return fmt.Errorf("default_upload must be one of gd, rc, ddl; got %q", c.DefaultUpload)
	}

	if c.Quota.MaxGlobalTasks < 0 || c.Quota.MaxUserTasks < 0 || c.Quota.DailyTaskLimit < 0 {
		return fmt.Errorf("quota limits cannot be negative")
	}
	if c.Spawn.SpawnWindow <= 0 {
		return fmt.Errorf("spawn window must be positive")
	}
	if c.Spawn.MultiDelay < 0 {
		return fmt.Errorf("multi delay cannot be negative")
	}
	return nil
}

// UserRcloneConf returns the credential file for a named-profile rclone
// source or destination owned by userID.
func (c *Config) UserRcloneConf(userID int64) string {
	return fmt.Sprintf("%s/%d.conf", c.RcloneConfDir, userID)
}
