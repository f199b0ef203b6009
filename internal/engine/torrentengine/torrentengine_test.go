package torrentengine

import (
	"path/filepath"
	"testing"

	"telegram-mirror-bot/internal/engine"
)

func TestRatioReached(t *testing.T) {
	cases := []struct {
		name     string
		uploaded int64
		length   int64
		ratio    float64
		want     bool
	}{
		{"below ratio", 512, 1024, 1.0, false},
		{"exact ratio", 1024, 1024, 1.0, true},
		{"above ratio", 2048, 1024, 1.5, true},
		{"fractional ratio", 1536, 1024, 1.5, true},
		{"zero length", 4096, 0, 1.0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ratioReached(tc.uploaded, tc.length, tc.ratio); got != tc.want {
				t.Errorf("ratioReached(%d, %d, %v) = %v, want %v", tc.uploaded, tc.length, tc.ratio, got, tc.want)
			}
		})
	}
}

func TestAddRejectsMissingTorrentFile(t *testing.T) {
	e := &Engine{}
	dl := &engine.Download{Link: filepath.Join(t.TempDir(), "missing.torrent")}
	if _, err := e.add(dl); err == nil {
		t.Fatal("expected an error for a missing torrent file")
	}
}
