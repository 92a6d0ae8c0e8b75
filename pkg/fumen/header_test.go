package fumen

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestHeaderMarshalSize(t *testing.T) {
	raw, err := NewHeader(3).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != HeaderSize {
		t.Fatalf("header size = %d; want %d", len(raw), HeaderSize)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	src := NewHeader(3)
	src.Stars = 8
	src.ScoreInit = 540
	src.ScoreDiff = 120
	src.HasBranches = 1
	src.Style = 1

	raw, err := src.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	var parsed Header
	if err := parsed.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}

	if parsed.ByteOrder() != binary.ByteOrder(binary.LittleEndian) {
		t.Errorf("ByteOrder = %v; want little endian", parsed.ByteOrder())
	}
	if parsed.Stars != 8 || parsed.ScoreInit != 540 || parsed.ScoreDiff != 120 {
		t.Errorf("trailer fields mismatch: %+v", parsed)
	}
	if parsed.Difficulty != 3 || parsed.Style != 1 || parsed.HasBranches != 1 {
		t.Errorf("fields mismatch: %+v", parsed)
	}
	if parsed.TimingWindows != src.TimingWindows {
		t.Errorf("timing windows mismatch")
	}

	// 同じバイト列に戻ること
	raw2, err := parsed.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if !bytes.Equal(raw, raw2) {
		t.Errorf("round trip bytes mismatch")
	}
}

func TestHeaderByteOrderDetection(t *testing.T) {
	src := NewHeader(3)
	src.SetByteOrder(binary.BigEndian)
	raw, err := src.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	// ビッグエンディアンのファイルは先頭floatのリトルエンディアン解釈が
	// 1.0にならないため判別できる
	var parsed Header
	if err := parsed.UnmarshalBinary(raw); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if parsed.ByteOrder() != binary.ByteOrder(binary.BigEndian) {
		t.Errorf("ByteOrder = %v; want big endian", parsed.ByteOrder())
	}
	if math.Abs(float64(parsed.Probe)-1.0) > 1e-3 {
		t.Errorf("Probe = %v; want 1.0", parsed.Probe)
	}
	if parsed.HPMax != 10000 {
		t.Errorf("HPMax = %d; want 10000", parsed.HPMax)
	}
}

func TestHeaderTruncated(t *testing.T) {
	var h Header
	if err := h.UnmarshalBinary(make([]byte, 100)); err == nil {
		t.Fatalf("expected an error for a short header")
	}
}

func TestHeaderTimingWindowsByDifficulty(t *testing.T) {
	easy := NewHeader(0)
	oni := NewHeader(3)
	if easy.TimingWindows[0] == oni.TimingWindows[0] {
		t.Errorf("easy and oni should have different timing windows")
	}
	if easy.HPClear != 6000 {
		t.Errorf("easy HPClear = %d; want 6000", easy.HPClear)
	}
	if oni.HPClear != 8000 {
		t.Errorf("oni HPClear = %d; want 8000", oni.HPClear)
	}
	// 判定枠レコードは36件繰り返される
	for i := 0; i < 36; i++ {
		if oni.TimingWindows[i*3] != oni.TimingWindows[0] {
			t.Fatalf("timing window record %d mismatch", i)
		}
	}
}
