// Package links classifies a resolved source string into exactly one download
// category. Classification is a total function; the priority order matters
// because several categories are substrings of others (a magnet URI would
// also satisfy the rclone path grammar, a drive link is also a generic URL).
package links

import (
	"regexp"
	"strings"
)

// Kind is the engine category assigned to a source.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindMagnet
	KindTelegram
	KindCloudDrive
	KindShare
	KindCloudBackup
	KindRclonePath
	KindTorrentFile
	KindDirectURL
)

func (k Kind) String() string {
	switch k {
	case KindMagnet:
		return "magnet"
	case KindTelegram:
		return "telegram-link"
	case KindCloudDrive:
		return "cloud-drive"
	case KindShare:
		return "cross-host-share"
	case KindCloudBackup:
		return "cloud-backup-service"
	case KindRclonePath:
		return "remote-storage-path"
	case KindTorrentFile:
		return "torrent-file"
	case KindDirectURL:
		return "direct-url"
	default:
		return "unrecognized"
	}
}

// ProfilePrefix marks an rclone path that uses a per-user named profile.
const ProfilePrefix = "mrcc:"

// BrowseSentinel asks the bot to open the interactive remote-storage browser.
const BrowseSentinel = "rcl"

const torrentMime = "application/x-bittorrent"

var (
	magnetRe = regexp.MustCompile(`^magnet:\?xt=urn:(btih|btmh):[a-zA-Z0-9]*`)
	shareRe  = regexp.MustCompile(`^https?://.+\.gdtot\.\S+$|^https?://(filepress|filebee|appdrive|gdflix)\.\S+$`)
	urlRe    = regexp.MustCompile(`^(rtmps?://|mms://|rtsp://|https?://|ftp://)?([^/:\s]+:[^/@\s]+@)?(www\.)?[^/:\s]+\.[^/:\s]+(:\d+)?(/[^#\s]*)?(\?[^#\s]*)?(#\S*)?$`)
	remoteRe = regexp.MustCompile(`^[a-zA-Z0-9_. -]+$`)
)

func IsMagnet(s string) bool { return magnetRe.MatchString(s) }

func IsURL(s string) bool {
	return s != "" && !strings.HasPrefix(s, "/") && urlRe.MatchString(s)
}

func IsTelegramLink(s string) bool {
	return strings.HasPrefix(s, "https://t.me/") || strings.HasPrefix(s, "tg://openmessage?user_id=")
}

func IsGDriveLink(s string) bool { return strings.Contains(s, "drive.google.com") }

func IsShareLink(s string) bool { return shareRe.MatchString(s) }

func IsMegaLink(s string) bool {
	return strings.Contains(s, "mega.nz") || strings.Contains(s, "mega.co.nz")
}

// IsRclonePath reports whether s matches the remote-storage path grammar: an
// optional "mrcc:" profile prefix, a remote name of [a-zA-Z0-9_. -] with no
// leading dash/space and no trailing space, a colon, and a remainder without
// "//". The literal sentinel "rcl" also qualifies (browse interactively).
func IsRclonePath(s string) bool {
	if s == BrowseSentinel {
		return true
	}
	rest := strings.TrimPrefix(s, ProfilePrefix)
	if strings.HasPrefix(rest, "magnet:") {
		return false
	}
	idx := strings.Index(rest, ":")
	if idx <= 0 {
		return false
	}
	remote := rest[:idx]
	if !remoteRe.MatchString(remote) {
		return false
	}
	if strings.HasPrefix(remote, "-") || strings.HasPrefix(remote, " ") || strings.HasSuffix(remote, " ") {
		return false
	}
	return !strings.Contains(rest[idx+1:], "//")
}

// IsTorrentFile reports whether a filename or declared MIME type indicates a
// torrent container.
func IsTorrentFile(filename, mime string) bool {
	return mime == torrentMime || strings.HasSuffix(strings.ToLower(filename), ".torrent")
}

// Classify assigns link (optionally described by an attached file's name and
// MIME type) to exactly one Kind. First match wins.
func Classify(link, filename, mime string) Kind {
	switch {
	case IsMagnet(link):
		return KindMagnet
	case IsTelegramLink(link):
		return KindTelegram
	case IsGDriveLink(link):
		return KindCloudDrive
	case IsShareLink(link):
		return KindShare
	case IsMegaLink(link):
		return KindCloudBackup
	case IsRclonePath(link):
		return KindRclonePath
	case IsTorrentFile(filename, mime):
		return KindTorrentFile
	case IsURL(link):
		return KindDirectURL
	default:
		return KindUnrecognized
	}
}
