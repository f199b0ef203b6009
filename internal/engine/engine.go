// Package engine defines the download engine contract. Each engine owns one
// transfer mechanism and reports completion through a Listener exactly once.
package engine

import "context"

// Kind selects which engine a classified source is handed to.
type Kind int

const (
	KindTelegram Kind = iota
	KindDirect
	KindTorrent
	KindRemote
	KindCloudDrive
	KindCloudBackup
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindTelegram:
		return "telegram"
	case KindDirect:
		return "direct"
	case KindTorrent:
		return "torrent"
	case KindRemote:
		return "remote"
	case KindCloudDrive:
		return "clouddrive"
	case KindCloudBackup:
		return "cloudbackup"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Download carries everything an engine needs to run one transfer.
// Fields beyond GID, Link and Path are engine specific.
type Download struct {
	GID  string
	Link string
	Path string
	Name string

	// Direct downloads.
	AuthHeader string

	// Torrent downloads.
	Ratio    float64
	SeedTime int
	Select   bool

	// Remote (rclone) downloads.
	ConfigPath string

	// Telegram documents.
	FileID   string
	FileName string
}

// Listener receives exactly one terminal callback per download.
type Listener interface {
	GID() string
	Succeeded(size int64)
	Failed(err error)
	Cancelled()
}

// Engine runs a transfer to completion and reports through the listener.
// AddDownload blocks until the transfer reaches a terminal state; callers
// run it on its own goroutine.
type Engine interface {
	AddDownload(ctx context.Context, dl *Download, listener Listener)
}

// Registry maps source kinds to engines. Populated once at startup, then
// read-only.
type Registry struct {
	engines map[Kind]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[Kind]Engine)}
}

func (r *Registry) Register(kind Kind, e Engine) {
	r.engines[kind] = e
}

// Get returns the engine for kind, or nil if none is registered.
func (r *Registry) Get(kind Kind) Engine {
	return r.engines[kind]
}
