package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MIRRORBOT_BOT_TOKEN", "test-token")
	t.Setenv("MIRRORBOT_DOWNLOAD_DIR", t.TempDir())
	t.Setenv("MIRRORBOT_QUOTA_MAX_USER_TASKS", "7")
	t.Setenv("MIRRORBOT_SPAWN_MULTI_DELAY", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "test-token" {
		t.Errorf("BotToken = %q", cfg.BotToken)
	}
	if cfg.Quota.MaxUserTasks != 7 {
		t.Errorf("MaxUserTasks = %d, want 7", cfg.Quota.MaxUserTasks)
	}
	if cfg.Spawn.MultiDelay != 2*time.Second {
		t.Errorf("MultiDelay = %v, want 2s", cfg.Spawn.MultiDelay)
	}
	if cfg.DefaultUpload != "gd" {
		t.Errorf("DefaultUpload = %q, want default gd", cfg.DefaultUpload)
	}
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("MIRRORBOT_BOT_TOKEN", "")
	t.Setenv("MIRRORBOT_DOWNLOAD_DIR", t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("want error for missing bot token")
	}
}

func TestLoadRejectsUnknownDefaultUpload(t *testing.T) {
	t.Setenv("MIRRORBOT_BOT_TOKEN", "x")
	t.Setenv("MIRRORBOT_DOWNLOAD_DIR", t.TempDir())
	t.Setenv("MIRRORBOT_DEFAULT_UPLOAD", "ftp")

	if _, err := Load(); err == nil {
		t.Fatal("want error for unknown default_upload")
	}
}

func TestUserRcloneConf(t *testing.T) {
	c := &Config{RcloneConfDir: "rclone"}
	if got := c.UserRcloneConf(42); got != "rclone/42.conf" {
		t.Errorf("UserRcloneConf = %q", got)
	}
}
