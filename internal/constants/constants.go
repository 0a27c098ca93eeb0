// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "streamgate.db"
	DefaultTmpDir       = "/tmp/streamgate"
	DefaultYTDLPPath    = "yt-dlp"
	DefaultFFmpegPath   = "ffmpeg"
	DefaultConcurrency  = 2
	DefaultRateLimitRPM = 60
	DefaultJobRetention = 5 * time.Minute
	DefaultProbeTimeout = 2 * time.Minute
	DefaultCacheTTL     = 12 * time.Hour
)

// Format selectors passed to yt-dlp
const (
	FormatBestMP4   = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	FormatBestAudio = "bestaudio/best"
)

// MIME types
const (
	MimeTypeMP4  = "video/mp4"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeJSON = "application/json"
)

// File extensions
const (
	ExtMP4 = ".mp4"
	ExtMP3 = ".mp3"
)

// Database tables
const (
	KeysTable       = "api_keys"
	RequestLogTable = "request_log"
	CacheTable      = "cache"
)

// File permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Broadcast
const (
	SubscriberBuffer = 16
)

// Bounds kept on external-process noise
const (
	StderrTailBytes = 8 * 1024
)

// Characters to sanitize from filesystem paths and header filenames
const InvalidPathChars = "<>:\"/\\|?*"
