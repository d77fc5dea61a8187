package hls

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bogem/id3v2/v2"
)

const (
	// ClockRate is the resolution of presentation timestamps in Hz.
	ClockRate = 90000

	// TimestampOwner is the owner identifier of the PRIV frame carrying the timestamp (RFC 8216 section 3.4).
	TimestampOwner = "com.apple.streaming.transportStreamTimestamp"

	// timestampMask keeps the low 33 bits of an MPEG-2 timestamp.
	timestampMask = 1<<33 - 1

	privFrameID = "PRIV"
	id3Version  = 3
)

// ErrTimingTagNotFound is returned by ReadTimestamp when a segment does not start with a timing tag.
var ErrTimingTagNotFound = errors.New("timing tag not found")

// Timestamp is the 33-bit presentation clock stamped into every segment.
// The zero value starts at zero.
type Timestamp struct {
	value uint64
}

// Value returns the current clock value.
func (t *Timestamp) Value() uint64 {
	return t.value
}

// Advance moves the clock forward by seconds, wrapping at 2^33.
func (t *Timestamp) Advance(seconds float64) {
	t.value = (t.value + uint64(math.Round(seconds*ClockRate))) & timestampMask
}

// AvailabilityWindow is how long an evicted segment stays fetchable: one segment
// duration plus the duration of the longest playlist that may still reference it.
func AvailabilityWindow(windowLen int, segmentDuration float64) float64 {
	return float64(1+windowLen) * segmentDuration
}

// TimingTag builds the ID3v2.3 tag that must prefix every packed audio segment.
// The PRIV frame carries pts as a big-endian eight-octet number with the upper 31 bits zero.
func TimingTag(pts uint64) ([]byte, error) {
	data := make([]byte, 0, len(TimestampOwner)+1+8)
	data = append(data, TimestampOwner...)
	data = append(data, 0)
	data = binary.BigEndian.AppendUint64(data, pts&timestampMask)

	tag := id3v2.NewEmptyTag()
	tag.SetVersion(id3Version)
	tag.AddFrame(privFrameID, id3v2.UnknownFrame{Body: data})

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write timing tag: %w", err)
	}
	return buf.Bytes(), nil
}

// Tag prefixes payload with the timing tag for pts.
func Tag(pts uint64, payload []byte) ([]byte, error) {
	tag, err := TimingTag(pts)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(tag)+len(payload))
	out = append(out, tag...)
	return append(out, payload...), nil
}

// ReadTimestamp decodes the presentation timestamp from the timing tag at the start of segment.
func ReadTimestamp(segment []byte) (uint64, error) {
	if !bytes.HasPrefix(segment, []byte("ID3")) {
		return 0, ErrTimingTagNotFound
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(segment), id3v2.Options{Parse: true, ParseFrames: []string{privFrameID}})
	if err != nil {
		return 0, fmt.Errorf("parse timing tag: %w", err)
	}
	defer tag.Close()

	owner := append([]byte(TimestampOwner), 0)
	for _, f := range tag.GetFrames(privFrameID) {
		uf, ok := f.(id3v2.UnknownFrame)
		if !ok || !bytes.HasPrefix(uf.Body, owner) {
			continue
		}
		data := uf.Body[len(owner):]
		if len(data) != 8 {
			return 0, fmt.Errorf("%w: timestamp is %d bytes", ErrTimingTagNotFound, len(data))
		}
		return binary.BigEndian.Uint64(data), nil
	}
	return 0, ErrTimingTagNotFound
}
