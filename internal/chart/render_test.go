package chart

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"NewsPulse/internal/model"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestRenderDistribution(t *testing.T) {
	counts := model.Counts{
		Stars:    map[int]int{1: 2, 2: 0, 3: 1, 4: 0, 5: 4},
		Emotions: model.EmotionCounts{Positive: 4, Neutral: 1, Negative: 2},
	}
	encoded, err := RenderDistribution(counts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("not standard base64: %v", err)
	}
	if !bytes.HasPrefix(raw, pngSignature) {
		t.Fatal("output is not a PNG")
	}
}

func TestRenderDistributionAllZero(t *testing.T) {
	counts := model.Counts{Stars: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	if _, err := DistributionPNG(counts); err != nil {
		t.Fatalf("empty histogram should still render: %v", err)
	}
}

func TestRenderTimeseries(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	series := []model.DailySentiment{
		{Day: day(1), Mean: 0.61, Count: 3},
		{Day: day(2), Mean: 0.45, Count: 1},
		{Day: day(4), Mean: 0.8, Count: 2},
	}
	encoded, err := RenderTimeseries(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(encoded)
	if !bytes.HasPrefix(raw, pngSignature) {
		t.Fatal("output is not a PNG")
	}

	if _, err := RenderTimeseries(nil); err == nil {
		t.Fatal("expected error for empty series")
	}
}
