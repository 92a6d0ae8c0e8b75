// Package convert は解析済みのTJA譜面をフマーン形式のデータへ変換します。
//
// TJAは分岐の中に小節を持ちますが、フマーンは小節の中に3つの分岐を
// 持ちます。この変換ではまず各分岐の小節列へコマンドの状態を織り込み、
// その後で小節単位に組み替えながらミリ秒のタイミング、連打の持続時間、
// 分岐条件のしきい値を計算します。
package convert

import (
	"fmt"

	"github.com/shiroemons/go-tja2fumen/pkg/fumen"
	"github.com/shiroemons/go-tja2fumen/pkg/tja"
)

// Song は解析済みのTJAに含まれる全コースを変換します。
// 戻り値のキーはTJA側のコース名（"Oni" や "OniP1" など）です
func Song(song *tja.Song) (map[string]*fumen.Course, error) {
	out := make(map[string]*fumen.Course, len(song.Courses))
	for _, name := range song.CourseNames() {
		course, err := Course(song.Courses[name], song.Warnings)
		if err != nil {
			return nil, fmt.Errorf("コース%s: %w", name, err)
		}
		out[name] = course
	}
	return out, nil
}

// Course は1つのコースをフマーンへ変換します
func Course(course *tja.Course, warns *tja.Warnings) (*fumen.Course, error) {
	branches, err := tja.CompileCourse(course, warns)
	if err != nil {
		return nil, err
	}

	normal := branches[tja.BranchNormal]
	nMeasures := 0
	hasBranches := true
	for _, name := range tja.BranchNames {
		if len(branches[name]) > nMeasures {
			nMeasures = len(branches[name])
		}
		if len(branches[name]) == 0 {
			hasBranches = false
		}
	}

	fc := &fumen.Course{
		Header:    *fumen.NewHeader(uint8(course.Difficulty)),
		ScoreInit: course.ScoreInit,
		ScoreDiff: course.ScoreDiff,
	}
	fc.Measures = make([]*fumen.Measure, nMeasures)
	for i := range fc.Measures {
		fc.Measures[i] = &fumen.Measure{
			Barline:    true,
			BranchInfo: [6]int32{-1, -1, -1, -1, -1, -1},
		}
	}

	totalNotes := make(map[string]int, len(tja.BranchNames))
	var branchKinds []string
	var branchConds [][2]float64

	for bi, name := range tja.BranchNames {
		src := branches[name]
		if len(src) == 0 {
			// 存在しない分岐は普通譜面の複製で埋める
			src = normal
		}
		// 3分岐に共通する小節を重ねて処理するため、診断はnormal側でのみ記録する
		branchWarns := warns
		if bi != fumen.BranchNormal {
			branchWarns = nil
		}
		collect := bi == fumen.BranchNormal
		if err := convertBranch(course, fc, src, bi, name, branchWarns, collect,
			totalNotes, &branchKinds, &branchConds); err != nil {
			return nil, err
		}
	}

	finishHeader(fc, course, hasBranches, totalNotes, branchKinds, branchConds)
	return fc, nil
}

// convertBranch は1分岐分の小節列をフマーンの小節へ書き込みます
func convertBranch(course *tja.Course, fc *fumen.Course, src []*tja.CompiledMeasure,
	bi int, name string, warns *tja.Warnings, collect bool,
	totalNotes map[string]int, kinds *[]string, conds *[][2]float64) error {

	// 進行中の連打は小節をまたいで持続時間が伸びるため、スライスの
	// 伸長に耐えるよう位置で覚えてアクセスのたびに引き直す
	rollMeasure, rollNote := -1, -1
	rollMulti := false
	roll := func() *fumen.Note {
		if rollMeasure < 0 {
			return nil
		}
		return &fc.Measures[rollMeasure].Branches[bi].Notes[rollNote]
	}
	closeRoll := func() {
		rollMeasure, rollNote = -1, -1
		rollMulti = false
	}

	levelhold := false
	balloonIdx := 0
	balloonWarned := false

	for i, m := range src {
		fm := fc.Measures[i]
		fb := &fm.Branches[bi]
		fb.Speed = float32(m.Scroll)
		fm.Gogo = m.Gogo
		fm.BPM = float32(m.BPM)

		duration := measureDuration(m)
		fm.Duration = float32(duration)
		if i == 0 {
			// 正のOFFSETは音符を早める。先頭小節の開始位置で表現する
			fm.OffsetStart = float32(-course.Offset * 1000)
		} else {
			delay := m.Delay
			if delay < 0 {
				warns.Addf("負の#DELAY %.0fmsを0として扱います", delay)
				delay = 0
			}
			fm.OffsetStart = fc.Measures[i-1].OffsetEnd + float32(delay)
		}
		fm.OffsetEnd = fm.OffsetStart + fm.Duration

		// 小節線。#BARLINEOFF中の小節と、小節頭から始まらない分割小節では隠す
		fm.Barline = m.Barline
		if m.PosStart != 0 && m.PosEnd-m.PosStart < m.Subdivisions {
			fm.Barline = false
		}

		if m.BranchKind != "" {
			// 分岐地点をまたぐ連打はその手前で打ち切る
			if r := roll(); r != nil {
				warns.Addf("分岐地点をまたぐ連打を分岐の手前で打ち切ります")
				r.Duration = float32(int(r.Duration))
				closeRoll()
			}
			// 分岐条件は#BRANCHSTART直前の小節に載せる
			target := fm
			if i > 0 {
				target = fc.Measures[i-1]
			}
			// 条件そのもののスロットは小節に1組しかないため、
			// 書き込みはnormal側の処理で一度だけ行う
			if collect {
				if err := setBranchInfo(target, m.BranchKind, m.BranchCond); err != nil {
					return err
				}
				*kinds = append(*kinds, m.BranchKind)
				*conds = append(*conds, m.BranchCond)
			}
			// #LEVELHOLD中の分岐はその分岐の参入しきい値で固定する。
			// 固定の上書きは#LEVELHOLDを含む分岐の処理が行うため、
			// 複数の分岐が固定を要求した場合は達人寄りの値が残る
			if levelhold {
				if err := setLevelHold(target, m.BranchKind, m.BranchCond, bi); err != nil {
					return err
				}
			}
		}
		if m.LevelHold {
			levelhold = true
		}
		if m.Section {
			fm.Padding1 |= 1
		}

		for _, ev := range m.Notes {
			posRatio := float64(ev.Pos-m.PosStart) / float64(m.PosEnd-m.PosStart)
			notePos := float32(duration * posRatio)
			sym := ev.Value[0]

			// 連打終端
			if sym == '8' {
				r := roll()
				if r == nil {
					warns.Addf("対応する連打のない8を無視します")
					continue
				}
				if rollMulti {
					r.Duration += notePos
				} else {
					r.Duration += notePos - r.Pos
				}
				r.Duration = float32(int(r.Duration))
				closeRoll()
				continue
			}

			// くすだまの連続は1つ目だけを残す
			if sym == '9' {
				if r := roll(); r != nil && r.Type == fumen.NoteKusudama {
					continue
				}
			}

			noteType, ok := mapSymbol(sym, m.Senote, warns)
			if !ok {
				continue
			}

			note := fumen.Note{Type: noteType, Pos: notePos}
			switch noteType {
			case fumen.NoteBalloon, fumen.NoteKusudama:
				note.ScoreInit = uint16(balloonHits(course, balloonIdx, warns, &balloonWarned))
				note.Item = uint32(balloonIdx)
				balloonIdx++
			default:
				note.ScoreInit = clampUint16(course.ScoreInit)
				note.ScoreDiff = clampUint16(course.ScoreDiff)
			}
			fb.Notes = append(fb.Notes, note)

			switch noteType {
			case fumen.NoteDrumroll, fumen.NoteDrumrollBig, fumen.NoteBalloon, fumen.NoteKusudama:
				rollMeasure, rollNote = i, len(fb.Notes)-1
				rollMulti = false
			case fumen.NoteDon, fumen.NoteKa, fumen.NoteDonBig, fumen.NoteKaBig,
				fumen.NoteHandLeft, fumen.NoteHandRight,
				fumen.NoteSenoteDo, fumen.NoteSenoteKo, fumen.NoteSenoteKat:
				totalNotes[name]++
			}
		}

		// 小節をまたぐ連打は小節の残り分だけ持続時間を伸ばす
		if r := roll(); r != nil {
			if rollMulti {
				r.Duration += fm.Duration
			} else {
				rollMulti = true
				r.Duration += fm.Duration - r.Pos
			}
		}
	}

	if r := roll(); r != nil {
		warns.Addf("終端されていない連打を曲末で打ち切ります")
		r.Duration = float32(int(r.Duration))
		closeRoll()
	}

	return nil
}

// measureDuration は小節のミリ秒長を計算します。
// 分割された小節は元の小節に占める割合の分だけ短くなる
func measureDuration(m *tja.CompiledMeasure) float64 {
	full := 4 * 60000 / m.BPM
	size := float64(m.TimeSig[0]) / float64(m.TimeSig[1])
	ratio := 1.0
	if m.Subdivisions > 0 {
		ratio = float64(m.PosEnd-m.PosStart) / float64(m.Subdivisions)
	}
	return full * size * ratio
}

// mapSymbol はTJAの音符記号をフマーンの音符種別に変換します。
// #SENOTECHANGEの状態によってドンとカッはボイス違いの種別になる
func mapSymbol(sym byte, senote int, warns *tja.Warnings) (fumen.NoteType, bool) {
	switch sym {
	case '1':
		switch senote {
		case 2:
			return fumen.NoteSenoteDo, true
		case 3:
			return fumen.NoteSenoteKo, true
		}
		return fumen.NoteDon, true
	case '2':
		if senote == 5 {
			return fumen.NoteSenoteKat, true
		}
		return fumen.NoteKa, true
	case '3':
		return fumen.NoteDonBig, true
	case '4':
		return fumen.NoteKaBig, true
	case '5':
		return fumen.NoteDrumroll, true
	case '6':
		return fumen.NoteDrumrollBig, true
	case '7':
		return fumen.NoteBalloon, true
	case '9':
		return fumen.NoteKusudama, true
	case 'A':
		return fumen.NoteHandLeft, true
	case 'B':
		return fumen.NoteHandRight, true
	case 'F':
		return fumen.NoteAdlib, true
	case 'C', 'D', 'E':
		warns.Addf("未対応の音符記号 %q をドンへ読み替えます", string(sym))
		return fumen.NoteDon, true
	case 'G', 'H', 'I':
		warns.Addf("未対応の音符記号 %q を大ドンへ読み替えます", string(sym))
		return fumen.NoteDonBig, true
	}
	return 0, false
}

// balloonHits は風船系音符の必要打数をBALLOONリストから取り出します。
// リストが足りない場合は最後の値（リストが空なら5）で補う
func balloonHits(course *tja.Course, idx int, warns *tja.Warnings, warned *bool) int {
	if idx < len(course.Balloon) {
		return course.Balloon[idx]
	}
	pad := 5
	if len(course.Balloon) > 0 {
		pad = course.Balloon[len(course.Balloon)-1]
	}
	if !*warned {
		warns.Addf("BALLOONの値が不足しています。%d打として補います", pad)
		*warned = true
	}
	return pad
}

// branchSlot は条件種別が使うスロット対の先頭位置を返します
func branchSlot(kind string) (int, error) {
	switch kind {
	case "p":
		return 0, nil
	case "r":
		return 2, nil
	case "s":
		return 4, nil
	}
	return 0, fmt.Errorf("不明な分岐条件の種別です: %q", kind)
}

// branchThreshold は条件値をスロットへの格納表現に変換します。
// 精度条件のしきい値は%値の4倍で格納する
func branchThreshold(kind string, v float64) int32 {
	if kind == "p" {
		return int32(v * 4)
	}
	return int32(v)
}

// setBranchInfo は分岐条件のしきい値を小節へ書き込みます。
// 6スロットのうち条件種別に対応する2つ（玄人行きと達人行きの門）
// だけを使い、残りは-1のまま
func setBranchInfo(m *fumen.Measure, kind string, cond [2]float64) error {
	slot, err := branchSlot(kind)
	if err != nil {
		return err
	}
	m.BranchInfo[slot] = branchThreshold(kind, cond[0])
	m.BranchInfo[slot+1] = branchThreshold(kind, cond[1])
	return nil
}

// levelHoldUnreachable は普通譜面の固定に使う到達不能なしきい値
const levelHoldUnreachable = 999

// setLevelHold は#LEVELHOLD中の分岐条件を、現在の分岐の参入しきい値を
// 両スロットに並べた値で上書きします。スロット対は（玄人行き、達人行き）
// の門なので、両方を参入しきい値にそろえると判定結果が現在の分岐から
// 動かなくなる。普通譜面には参入の門がないため到達不能な値を使う
func setLevelHold(m *fumen.Measure, kind string, cond [2]float64, branch int) error {
	slot, err := branchSlot(kind)
	if err != nil {
		return err
	}
	var hold int32
	switch branch {
	case fumen.BranchAdvanced:
		hold = branchThreshold(kind, cond[0])
	case fumen.BranchMaster:
		hold = branchThreshold(kind, cond[1])
	default:
		hold = levelHoldUnreachable
	}
	m.BranchInfo[slot] = hold
	m.BranchInfo[slot+1] = hold
	return nil
}

// finishHeader は変換結果の集計からヘッダの派生値を埋めます
func finishHeader(fc *fumen.Course, course *tja.Course, hasBranches bool,
	totalNotes map[string]int, kinds []string, conds [][2]float64) {

	h := &fc.Header
	h.Stars = uint8(min(10, max(1, course.Level)))
	h.ScoreInit = clampUint16(course.ScoreInit)
	h.ScoreDiff = clampUint16(course.ScoreDiff)
	if course.Style == tja.StyleDouble {
		h.Style = 1
	}
	if hasBranches {
		h.HasBranches = 1
	}

	// 魂ゲージのクリアラインは難易度で決まる
	switch course.Difficulty {
	case tja.DifficultyEasy:
		h.HPClear = 6000
	case tja.DifficultyNormal, tja.DifficultyHard:
		h.HPClear = 7000
	default:
		h.HPClear = 8000
	}

	// 分岐条件が連打数のみ（または必ず昇格/降格する精度条件のみ）の場合は
	// 連打だけが分岐ポイントに寄与するようにする
	if len(kinds) > 0 {
		drumrollOnly := true
		for i, kind := range kinds {
			forced := kind == "p" && ((conds[i][0] == 0 && conds[i][1] == 0) ||
				(conds[i][0] > 100 && conds[i][1] > 100))
			if kind != "r" && !forced {
				drumrollOnly = false
				break
			}
		}
		if drumrollOnly {
			h.BranchPtsGood = 0
			h.BranchPtsOK = 0
			h.BranchPtsGoodBig = 0
			h.BranchPtsOKBig = 0
			h.BranchPtsBalloon = 0
			h.BranchPtsKusudama = 0
		}

		// 逆に精度条件のみの場合は連打の寄与を外す
		percentageOnly := true
		for _, kind := range kinds {
			if kind != "p" {
				percentageOnly = false
				break
			}
		}
		if percentageOnly {
			h.BranchPtsDrumroll = 0
			h.BranchPtsDrumrollBig = 0
		}
	}

	// 普通譜面に対する玄人と達人の音符数比（65536倍の固定小数）
	if totalNotes[tja.BranchAdvanced] > 0 {
		h.NormalAdvancedRatio = int32(65536 * totalNotes[tja.BranchNormal] / totalNotes[tja.BranchAdvanced])
	}
	if totalNotes[tja.BranchMaster] > 0 {
		h.NormalMasterRatio = int32(65536 * totalNotes[tja.BranchNormal] / totalNotes[tja.BranchMaster])
	}
}

// clampUint16 は整数をレコードの16ビット範囲に収めます
func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
