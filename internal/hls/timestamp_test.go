package hls

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestTimestamp_Advance(t *testing.T) {
	var ts Timestamp
	if ts.Value() != 0 {
		t.Fatalf("zero value = %d, want 0", ts.Value())
	}
	ts.Advance(AvailabilityWindow(3, 8.0))
	if ts.Value() != 32*ClockRate {
		t.Errorf("after 32s = %d, want %d", ts.Value(), 32*ClockRate)
	}
	ts.Advance(0.5)
	if ts.Value() != 32*ClockRate+45000 {
		t.Errorf("after 32.5s = %d, want %d", ts.Value(), 32*ClockRate+45000)
	}
}

func TestTimestamp_Advance_wraps_at_33_bits(t *testing.T) {
	ts := Timestamp{value: 1<<33 - 10}
	ts.Advance(20.0 / ClockRate)
	if ts.Value() != 10 {
		t.Errorf("wrapped value = %d, want 10", ts.Value())
	}
}

func TestAvailabilityWindow(t *testing.T) {
	if got := AvailabilityWindow(3, 8.0); got != 32 {
		t.Errorf("AvailabilityWindow(3, 8) = %v, want 32", got)
	}
	if got := AvailabilityWindow(0, 2.5); got != 2.5 {
		t.Errorf("AvailabilityWindow(0, 2.5) = %v, want 2.5", got)
	}
}

func TestTimingTag_layout(t *testing.T) {
	const pts = uint64(0x1_2345_6789)
	tag, err := TimingTag(pts)
	if err != nil {
		t.Fatalf("TimingTag: %v", err)
	}

	if !bytes.HasPrefix(tag, []byte{'I', 'D', '3', 3, 0, 0}) {
		t.Fatalf("tag header = % x, want ID3v2.3 with no flags", tag[:6])
	}
	if !bytes.Equal(tag[10:14], []byte("PRIV")) {
		t.Fatalf("first frame = %q, want PRIV", tag[10:14])
	}

	owner := []byte(TimestampOwner + "\x00")
	i := bytes.Index(tag, owner)
	if i < 0 {
		t.Fatalf("owner identifier missing from tag % x", tag)
	}
	data := tag[i+len(owner):]
	if len(data) < 8 {
		t.Fatalf("timestamp truncated: % x", data)
	}
	if data[0] != 0 || data[1] != 0 || data[2] != 0 || data[3]&0xfe != 0 {
		t.Errorf("upper 31 bits set: % x", data[:8])
	}
	if got := binary.BigEndian.Uint64(data[:8]); got != pts {
		t.Errorf("timestamp = %#x, want %#x", got, pts)
	}
}

func TestTag_prefixes_payload(t *testing.T) {
	payload := []byte("encoded audio")
	tagged, err := Tag(90000, payload)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	tag, _ := TimingTag(90000)
	if !bytes.Equal(tagged, append(tag, payload...)) {
		t.Error("tagged segment is not tag followed by payload")
	}

	got, err := ReadTimestamp(tagged)
	if err != nil {
		t.Fatalf("ReadTimestamp: %v", err)
	}
	if got != 90000 {
		t.Errorf("ReadTimestamp = %d, want 90000", got)
	}
}

func TestTimingTag_masks_upper_bits(t *testing.T) {
	tag, err := TimingTag(1<<40 | 5)
	if err != nil {
		t.Fatalf("TimingTag: %v", err)
	}
	got, err := ReadTimestamp(tag)
	if err != nil {
		t.Fatalf("ReadTimestamp: %v", err)
	}
	if got != 5 {
		t.Errorf("ReadTimestamp = %d, want 5", got)
	}
}

func TestReadTimestamp_untagged(t *testing.T) {
	_, err := ReadTimestamp([]byte("raw adts frames"))
	if !errors.Is(err, ErrTimingTagNotFound) {
		t.Errorf("expected ErrTimingTagNotFound, got %v", err)
	}
}
