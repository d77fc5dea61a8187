package hls

import (
	"math"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/livepeer/m3u8"
)

// playlistVersion is the EXT-X-VERSION written to every document.
const playlistVersion = 3

// Playlist is the sliding window of segments advertised to clients.
// It is not safe for concurrent use; SharedState serializes access.
type Playlist struct {
	cfg   Config
	clock clockwork.Clock

	segments      []Segment
	mediaSequence uint64
	lastMillis    int64
}

// NewPlaylist returns an empty playlist for cfg. Identifiers are derived from clock.
func NewPlaylist(cfg Config, clock clockwork.Clock) *Playlist {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Playlist{
		cfg:      cfg,
		clock:    clock,
		segments: make([]Segment, 0, cfg.SegmentsToKeep),
	}
}

// AddSegment appends a new segment, evicting the oldest one once the window is full.
// It returns the new identifier and, when ok is true, the identifier of the evicted segment.
func (p *Playlist) AddSegment() (added string, evicted string, ok bool) {
	if len(p.segments) >= p.cfg.SegmentsToKeep {
		evicted, ok = p.segments[0].ID, true
		p.segments[0] = Segment{}
		p.segments = p.segments[1:]
		p.mediaSequence++
	}

	added = segmentPrefix + strconv.FormatInt(p.nextMillis(), 10) + p.cfg.FileExtension
	p.segments = append(p.segments, Segment{
		ID:       added,
		URI:      p.cfg.BaseURI + added,
		Duration: p.cfg.SegmentDuration,
	})
	return added, evicted, ok
}

// nextMillis returns the clock in milliseconds, bumped past the previous value
// when two segments are created within the same millisecond.
func (p *Playlist) nextMillis() int64 {
	ms := p.clock.Now().UnixMilli()
	if ms <= p.lastMillis {
		ms = p.lastMillis + 1
	}
	p.lastMillis = ms
	return ms
}

// Document serializes the window as a live media playlist.
// An empty window produces a playlist with media sequence 0 and no entries.
func (p *Playlist) Document() []byte {
	capacity := uint(p.cfg.SegmentsToKeep)
	if capacity == 0 {
		capacity = 1
	}
	pl, err := m3u8.NewMediaPlaylist(0, capacity)
	if err != nil {
		panic("hls: media playlist: " + err.Error())
	}
	pl.SetVersion(playlistVersion)
	pl.TargetDuration = math.Ceil(p.cfg.SegmentDuration)
	pl.SeqNo = p.mediaSequence
	for _, seg := range p.segments {
		if err := pl.Append(seg.URI, seg.Duration, ""); err != nil {
			panic("hls: append segment " + seg.ID + ": " + err.Error())
		}
	}

	buf := pl.Encode()
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// Len returns the number of segments in the window.
func (p *Playlist) Len() int {
	return len(p.segments)
}

// MediaSequence returns the number of segments evicted so far.
func (p *Playlist) MediaSequence() uint64 {
	return p.mediaSequence
}

// Segments returns a copy of the window, oldest first.
func (p *Playlist) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}
