package tier

import (
	"bytes"
	"testing"
	"time"

	"github.com/cogmem/cogmem/internal/types"
)

func TestClassifyByAge(t *testing.T) {
	now := time.Now()
	th := DefaultThresholds

	cases := []struct {
		age  time.Duration
		want Tier
	}{
		{time.Minute, Hot},
		{2 * 24 * time.Hour, Warm},
		{10 * 24 * time.Hour, Cold},
		{40 * 24 * time.Hour, Frozen},
	}
	for _, c := range cases {
		ev := types.Event{CreatedAt: now.Add(-c.age).UnixMicro()}
		got := Classify(ev, now, th)
		if got != c.want {
			t.Errorf("age %v: expected %v, got %v", c.age, c.want, got)
		}
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeated, repeated, repeated")

	for _, codec := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		payload, err := Compress(codec, data)
		if err != nil {
			t.Fatalf("Compress(%d): %v", codec, err)
		}
		got, err := Decompress(payload)
		if err != nil {
			t.Fatalf("Decompress(%d): %v", codec, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("codec %d: round-trip mismatch: got %q", codec, got)
		}
	}
}

func TestCompressEmptyRoundTripsToEmpty(t *testing.T) {
	payload, err := Compress(CodecLZ4, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if payload != nil {
		t.Fatalf("expected nil payload for empty input, got %v", payload)
	}
	got, err := Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
}

func TestDecompressUnknownCodecPassesThrough(t *testing.T) {
	raw := []byte{0xFF, 1, 0, 0, 0, 'h', 'i'}
	got, err := Decompress(raw)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestPromotionRuleColdAutoPromotes(t *testing.T) {
	r := DefaultPromotionRule
	if r.OnAccess(Cold) != Warm {
		t.Fatalf("expected Cold to auto-promote to Warm")
	}
	if r.OnAccess(Frozen) != Frozen {
		t.Fatalf("expected Frozen to require explicit thaw")
	}
}
