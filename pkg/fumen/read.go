package fumen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ファイル上のレコードレイアウト。encoding/binaryはパディングなしの
// 詰めた配置で読み書きする
type measureRecord struct {
	BPM         float32
	OffsetStart float32
	Gogo        uint8
	Barline     uint8
	Padding1    uint16
	BranchInfo  [6]int32
	Padding2    uint32
}

type branchRecord struct {
	Length  uint16
	Speed   float32
	Padding uint32
}

type noteRecord struct {
	Type      uint16
	Pos       float32
	Item      uint32
	Padding   uint16
	ScoreInit uint16
	ScoreDiff uint16
}

// レコードの最小サイズ（バイト）。サイズ検査に使う
const (
	noteRecordSize    = 16
	branchRecordSize  = 10
	measureRecordSize = 40
	minMeasureSize    = measureRecordSize + BranchCount*branchRecordSize
)

// Parse は .bin ファイルを読み込んで Course を構築します。
// excludeEmptyMeasuresがtrueの場合、3分岐とも音符を持たない小節を
// 結果から取り除きます（公式譜面は小節線の演出のために空小節を
// 含むことがあるため、比較用途ではこれを外せると便利です）。
func Parse(path string, excludeEmptyMeasures bool) (*Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, excludeEmptyMeasures)
}

// ParseBytes はバイト列から Course を構築します
func ParseBytes(data []byte, excludeEmptyMeasures bool) (*Course, error) {
	course := &Course{}
	if err := course.Header.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	order := course.Header.ByteOrder()

	r := bytes.NewReader(data[HeaderSize:])
	offset := func() int64 {
		return int64(len(data) - r.Len())
	}

	var measureCount int32
	if err := readValue(r, order, offset(), &measureCount); err != nil {
		return nil, err
	}
	if err := readValue(r, order, offset(), &course.Headroom1); err != nil {
		return nil, err
	}
	if err := readValue(r, order, offset(), &course.Headroom2); err != nil {
		return nil, err
	}

	if measureCount < 0 || int64(measureCount)*minMeasureSize > int64(r.Len()) {
		return nil, newReadError(offset(), fmt.Errorf("%w: %d小節", ErrMeasureOverflow, measureCount))
	}

	for i := int32(0); i < measureCount; i++ {
		var rec measureRecord
		if err := readValue(r, order, offset(), &rec); err != nil {
			return nil, err
		}
		measure := &Measure{
			BPM:         rec.BPM,
			OffsetStart: rec.OffsetStart,
			Gogo:        rec.Gogo != 0,
			Barline:     rec.Barline != 0,
			Padding1:    rec.Padding1,
			BranchInfo:  rec.BranchInfo,
			Padding2:    rec.Padding2,
		}

		for b := 0; b < BranchCount; b++ {
			var br branchRecord
			if err := readValue(r, order, offset(), &br); err != nil {
				return nil, err
			}
			if int(br.Length)*noteRecordSize > r.Len() {
				return nil, newReadError(offset(), fmt.Errorf("%w: %d音符", ErrLengthOverflow, br.Length))
			}
			branch := Branch{
				Speed:   br.Speed,
				Padding: br.Padding,
				Notes:   make([]Note, 0, br.Length),
			}

			for n := uint16(0); n < br.Length; n++ {
				var nr noteRecord
				if err := readValue(r, order, offset(), &nr); err != nil {
					return nil, err
				}
				noteType := NoteType(nr.Type)
				if !noteType.Valid() {
					return nil, newReadError(offset(), fmt.Errorf("%w: 0x%x", ErrUnknownNoteType, nr.Type))
				}
				note := Note{
					Type:      noteType,
					Pos:       nr.Pos,
					Item:      nr.Item,
					Padding:   nr.Padding,
					ScoreInit: nr.ScoreInit,
					ScoreDiff: nr.ScoreDiff,
				}
				if noteType.HasDuration() {
					if err := readValue(r, order, offset(), &note.Duration); err != nil {
						return nil, err
					}
				}
				branch.Notes = append(branch.Notes, note)
			}
			measure.Branches[b] = branch
		}
		course.Measures = append(course.Measures, measure)
	}

	recomputeDurations(course.Measures)
	course.ScoreInit = int(course.Header.ScoreInit)
	course.ScoreDiff = int(course.Header.ScoreDiff)

	if excludeEmptyMeasures {
		kept := course.Measures[:0]
		for _, m := range course.Measures {
			if !m.Empty() {
				kept = append(kept, m)
			}
		}
		course.Measures = kept
	}

	return course, nil
}

// readValue はバイナリ値を読み込み、途中終端をErrTruncatedに変換します
func readValue(r *bytes.Reader, order binary.ByteOrder, offset int64, v any) error {
	if err := binary.Read(r, order, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return newReadError(offset, ErrTruncated)
		}
		return newReadError(offset, err)
	}
	return nil
}

// recomputeDurations はファイルに保存されないOffsetEndとDurationを
// 再計算します。最後の小節は自身のBPMでの4/4拍子1小節分とみなす
func recomputeDurations(measures []*Measure) {
	for i, m := range measures {
		if i+1 < len(measures) {
			m.Duration = measures[i+1].OffsetStart - m.OffsetStart
		} else if m.BPM > 0 {
			m.Duration = 4 * 60000 / m.BPM
		}
		m.OffsetEnd = m.OffsetStart + m.Duration
	}
}
