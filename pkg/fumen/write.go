package fumen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Write は Course を .bin ファイルへ書き出します。
// バイトオーダーはヘッダのものに従います（読み込み由来でなければ
// リトルエンディアン）。
func Write(path string, course *Course) error {
	data, err := Marshal(course)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal は Course をバイト列に変換します。
// OffsetEndとDurationは書き出されず、読み込み時に再計算されます
func Marshal(course *Course) ([]byte, error) {
	order := course.Header.ByteOrder()

	buf := &bytes.Buffer{}
	header, err := course.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf.Write(header)

	if err := binary.Write(buf, order, int32(len(course.Measures))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, order, course.Headroom1); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, order, course.Headroom2); err != nil {
		return nil, err
	}

	for _, m := range course.Measures {
		rec := measureRecord{
			BPM:         m.BPM,
			OffsetStart: m.OffsetStart,
			Gogo:        putBool(m.Gogo),
			Barline:     putBool(m.Barline),
			Padding1:    m.Padding1,
			BranchInfo:  m.BranchInfo,
			Padding2:    m.Padding2,
		}
		if err := binary.Write(buf, order, rec); err != nil {
			return nil, err
		}

		for b := 0; b < BranchCount; b++ {
			branch := &m.Branches[b]
			if len(branch.Notes) > 0xFFFF {
				return nil, fmt.Errorf("音符数が多すぎます: %d", len(branch.Notes))
			}
			br := branchRecord{
				Length:  uint16(len(branch.Notes)),
				Speed:   branch.Speed,
				Padding: branch.Padding,
			}
			if err := binary.Write(buf, order, br); err != nil {
				return nil, err
			}

			for i := range branch.Notes {
				note := &branch.Notes[i]
				nr := noteRecord{
					Type:      uint16(note.Type),
					Pos:       note.Pos,
					Item:      note.Item,
					Padding:   note.Padding,
					ScoreInit: note.ScoreInit,
					ScoreDiff: note.ScoreDiff,
				}
				if err := binary.Write(buf, order, nr); err != nil {
					return nil, err
				}
				if note.Type.HasDuration() {
					if err := binary.Write(buf, order, note.Duration); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return buf.Bytes(), nil
}

// putBool は真偽値をレコード上の1バイト表現に変換します
func putBool(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
