package fumen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize はヘッダの固定サイズ（バイト）
const HeaderSize = 520

// ヘッダ先頭の検査用floatの基準値。リトルエンディアンで読んで
// この値に近ければファイル全体をリトルエンディアンとして扱う
const headerProbe = 1.0

// Header はフマーンファイルの520バイトのヘッダを表します。
// 判定枠レコード36件、分岐ポイントと魂ゲージのテーブル、難易度などの
// 末尾フィールドで構成されます。
type Header struct {
	order binary.ByteOrder

	// Probe はバイトオーダー判別用のfloat。常に1.0で書き出される
	Probe float32

	// TimingWindows は36件の判定枠レコード。各レコードは
	// 良、可、不可の3つのミリ秒値を持つ
	TimingWindows [108]float32

	// 分岐ポイントと魂ゲージのテーブル
	HasBranches          int32
	HPMax                int32
	HPClear              int32
	HPGainGood           int32
	HPGainOK             int32
	HPLossBad            int32
	NormalNormalRatio    int32
	NormalAdvancedRatio  int32
	NormalMasterRatio    int32
	BranchPtsGood        int32
	BranchPtsOK          int32
	BranchPtsBad         int32
	BranchPtsDrumroll    int32
	BranchPtsGoodBig     int32
	BranchPtsOKBig       int32
	BranchPtsDrumrollBig int32
	BranchPtsBalloon     int32
	BranchPtsKusudama    int32
	BranchPtsUnknown     int32

	// 末尾フィールド
	Difficulty uint8 // 0〜4
	Stars      uint8
	ScoreInit  uint16
	ScoreDiff  uint16
	Style      uint8 // 0: 一人用、1: 二人用
	IsPapamama uint8
}

// 難易度別の判定枠（良、可、不可のミリ秒値）
var (
	timingWindowsEasy = [3]float32{41.7083358764648, 108.441665649414, 125.125}
	timingWindowsHard = [3]float32{25.0250015258789, 75.075004577637, 108.441665649414}
)

// NewHeader は難易度に応じた既定値を持つヘッダを作成します
func NewHeader(difficulty uint8) *Header {
	h := &Header{
		order:                binary.LittleEndian,
		Probe:                headerProbe,
		HPMax:                10000,
		HPClear:              8000,
		HPGainGood:           10,
		HPGainOK:             5,
		HPLossBad:            -20,
		NormalNormalRatio:    65536,
		NormalAdvancedRatio:  65536,
		NormalMasterRatio:    65536,
		BranchPtsGood:        20,
		BranchPtsOK:          10,
		BranchPtsBad:         0,
		BranchPtsDrumroll:    1,
		BranchPtsGoodBig:     20,
		BranchPtsOKBig:       10,
		BranchPtsDrumrollBig: 1,
		BranchPtsBalloon:     30,
		BranchPtsKusudama:    30,
		BranchPtsUnknown:     20,
		Difficulty:           difficulty,
	}

	windows := timingWindowsHard
	switch difficulty {
	case 0: // Easy
		windows = timingWindowsEasy
		h.HPClear = 6000
	case 1, 2: // Normal, Hard
		if difficulty == 1 {
			windows = timingWindowsEasy
		}
		h.HPClear = 7000
	}
	for i := 0; i < 36; i++ {
		copy(h.TimingWindows[i*3:i*3+3], windows[:])
	}

	return h
}

// ByteOrder はこのヘッダのバイトオーダーを返します。
// 読み込み由来でないヘッダはリトルエンディアンです
func (h *Header) ByteOrder() binary.ByteOrder {
	if h.order == nil {
		return binary.LittleEndian
	}
	return h.order
}

// SetByteOrder はバイトオーダーを設定します
func (h *Header) SetByteOrder(order binary.ByteOrder) {
	h.order = order
}

// fields はファイル上の並び順のフィールド一覧を返します
func (h *Header) fields() []any {
	return []any{
		&h.Probe,
		&h.TimingWindows,
		&h.HasBranches,
		&h.HPMax,
		&h.HPClear,
		&h.HPGainGood,
		&h.HPGainOK,
		&h.HPLossBad,
		&h.NormalNormalRatio,
		&h.NormalAdvancedRatio,
		&h.NormalMasterRatio,
		&h.BranchPtsGood,
		&h.BranchPtsOK,
		&h.BranchPtsBad,
		&h.BranchPtsDrumroll,
		&h.BranchPtsGoodBig,
		&h.BranchPtsOKBig,
		&h.BranchPtsDrumrollBig,
		&h.BranchPtsBalloon,
		&h.BranchPtsKusudama,
		&h.BranchPtsUnknown,
		&h.Difficulty,
		&h.Stars,
		&h.ScoreInit,
		&h.ScoreDiff,
		&h.Style,
		&h.IsPapamama,
	}
}

// UnmarshalBinary は520バイトのヘッダを解析します。
// バイトオーダーは先頭4バイトの検査用floatから自動判別します
func (h *Header) UnmarshalBinary(raw []byte) error {
	if len(raw) < HeaderSize {
		return newReadError(0, ErrTruncated)
	}
	h.order = detectByteOrder(raw)

	r := bytes.NewReader(raw[:HeaderSize])
	for _, field := range h.fields() {
		if err := binary.Read(r, h.order, field); err != nil {
			return newReadError(int64(HeaderSize-r.Len()), err)
		}
	}
	return nil
}

// MarshalBinary はヘッダを520バイトのバイト列に変換します
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize)
	for _, field := range h.fields() {
		if err := binary.Write(buf, h.ByteOrder(), field); err != nil {
			return nil, err
		}
	}
	if buf.Len() != HeaderSize {
		return nil, fmt.Errorf("ヘッダサイズが不正です: %dバイト", buf.Len())
	}
	return buf.Bytes(), nil
}

// detectByteOrder は先頭4バイトからバイトオーダーを判別します
func detectByteOrder(raw []byte) binary.ByteOrder {
	v := math.Float32frombits(binary.LittleEndian.Uint32(raw[:4]))
	if math.Abs(float64(v)-headerProbe) < 1e-3 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
