package hls

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultPlaylistPath is where the media playlist is served when Config.PlaylistPath is empty.
const DefaultPlaylistPath = "/stream.m3u8"

// segmentPrefix starts every segment identifier.
const segmentPrefix = "segment-"

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrSegmentNotFound is returned when removing a segment the store does not hold.
	ErrSegmentNotFound = errors.New("segment not found")
)

// Config is fixed for the lifetime of a server.
type Config struct {
	// SegmentsToKeep is the number of segments advertised in the playlist.
	SegmentsToKeep int
	// SegmentDuration is the nominal duration of every segment in seconds.
	SegmentDuration float64
	// BaseURI is the public prefix of segment URIs, e.g. "http://localhost:3000/".
	// The trailing slash is required.
	BaseURI string
	// FileExtension is appended to segment identifiers, e.g. ".aac".
	FileExtension string
	// PlaylistPath is the request path of the media playlist.
	PlaylistPath string
}

// Validate reports whether c can be used to build a server.
func (c Config) Validate() error {
	if c.SegmentsToKeep < 1 {
		return fmt.Errorf("%w: segments to keep must be at least 1, got %d", ErrInvalidConfig, c.SegmentsToKeep)
	}
	if c.SegmentDuration <= 0 {
		return fmt.Errorf("%w: segment duration must be positive, got %v", ErrInvalidConfig, c.SegmentDuration)
	}
	u, err := url.Parse(c.BaseURI)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: base uri %q is not absolute", ErrInvalidConfig, c.BaseURI)
	}
	if !strings.HasSuffix(c.BaseURI, "/") {
		return fmt.Errorf("%w: base uri %q must end with /", ErrInvalidConfig, c.BaseURI)
	}
	if c.PlaylistPath != "" && !strings.HasPrefix(c.PlaylistPath, "/") {
		return fmt.Errorf("%w: playlist path %q must start with /", ErrInvalidConfig, c.PlaylistPath)
	}
	return nil
}

func (c Config) playlistPath() string {
	if c.PlaylistPath == "" {
		return DefaultPlaylistPath
	}
	return c.PlaylistPath
}

// Segment is one entry of the sliding window.
type Segment struct {
	// ID is the store key and the last path component of URI.
	ID       string
	URI      string
	Duration float64
}
