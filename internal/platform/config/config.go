package config

import (
	"flag"
	"fmt"
	"time"

	"hls-audio-server/internal/hls"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
)

// EnvPrefix prefixes the environment variable of every flag, e.g. HLS_SEGMENTS_TO_KEEP.
const EnvPrefix = "HLS"

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
// Variables already set in the environment are not overridden.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// Settings is the full runtime configuration of the server process.
type Settings struct {
	Addr            string
	Stream          hls.Config
	SourceDir       string
	ProducerFailure hls.ProducerFailurePolicy
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Parse reads settings from args, then from HLS_* environment variables, then from
// the optional file named by -config. Flags take precedence over the environment.
func Parse(name string, args []string) (Settings, error) {
	var (
		s       Settings
		failure string
	)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&s.Addr, "addr", ":3000", "listen address")
	fs.IntVar(&s.Stream.SegmentsToKeep, "segments-to-keep", 10, "number of segments advertised in the playlist")
	fs.Float64Var(&s.Stream.SegmentDuration, "segment-duration", 8.0, "segment duration in seconds")
	fs.StringVar(&s.Stream.BaseURI, "base-uri", "http://localhost:3000/", "public URI prefix of segments, with trailing slash")
	fs.StringVar(&s.Stream.FileExtension, "file-extension", ".aac", "file extension of segments")
	fs.StringVar(&s.Stream.PlaylistPath, "playlist-path", hls.DefaultPlaylistPath, "request path of the playlist")
	fs.StringVar(&s.SourceDir, "source-dir", "", "directory of pre-encoded segment files to loop over (empty serves silence)")
	fs.StringVar(&failure, "producer-failure", "empty", "what to do when the source fails: empty or abort")
	fs.StringVar(&s.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&s.LogFormat, "log-format", "json", "log format: json or text")
	fs.DurationVar(&s.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed to drain connections on shutdown")
	fs.String("config", "", "config file (optional)")

	err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		return Settings{}, err
	}

	if s.ProducerFailure, err = hls.ParseProducerFailurePolicy(failure); err != nil {
		return Settings{}, err
	}
	if err := s.Stream.Validate(); err != nil {
		return Settings{}, err
	}
	if s.ShutdownTimeout <= 0 {
		return Settings{}, fmt.Errorf("%w: shutdown timeout must be positive", hls.ErrInvalidConfig)
	}
	return s, nil
}
