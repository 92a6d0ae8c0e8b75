package tja

import (
	"fmt"
	"strings"
)

// noteSymbols は譜面本体で有効な音符記号の集合
const noteSymbols = "0123456789ABCDEFGHI"

// parseCourseData は譜面本体を小節と分岐に分解して c.Branches を構築します。
//
// 本体の行は「音符データ」と「#コマンド」のどちらかです。音符データは `,`
// が現れるたびに小節として確定し、コマンドはその時点の小節内位置に
// イベントとして記録されます。分岐セクションの外では3つの分岐すべてに
// 同じ小節が追加され、#N/#E/#M で対象の分岐だけに切り替わります。
func parseCourseData(c *Course, warns *Warnings) error {
	branches := map[string][]*Measure{
		BranchNormal:   {{}},
		BranchAdvanced: {{}},
		BranchMaster:   {{}},
	}

	hasBranches := false
	for _, line := range c.Data {
		if strings.HasPrefix(line, "#BRANCH") {
			hasBranches = true
			break
		}
	}

	currentBranch := BranchNormal
	if hasBranches {
		currentBranch = "all"
	}

	// 対象となる分岐名を返すヘルパー
	targets := func() []string {
		if currentBranch == "all" {
			return BranchNames[:]
		}
		return []string{currentBranch}
	}

	// 対象分岐がidxM番目の小節を持つことを確認するヘルパー。
	// 分岐間で小節数が揃っていない譜面はここで検出される
	syncCheck := func(idxM int) error {
		for _, branch := range targets() {
			if idxM >= len(branches[branch]) {
				return newParseError(0, fmt.Errorf("%w: %s側の小節が不足しています",
					ErrBranchLength, branch))
			}
		}
		return nil
	}

	// 現在の小節へイベントを追加するヘルパー
	appendEvent := func(idxM int, name, value string) error {
		if err := syncCheck(idxM); err != nil {
			return err
		}
		for _, branch := range targets() {
			m := branches[branch][idxM]
			m.Events = append(m.Events, Event{
				Name:  name,
				Value: value,
				Pos:   len(m.Notes),
			})
		}
		return nil
	}

	var (
		idxM            = 0
		idxMBranchstart = 0
		seenBranchstart = false
		branchCondition = ""
	)

	for idxL, line := range c.Data {
		m := commandPattern.FindStringSubmatch(line)

		// 音符データの行
		if m == nil {
			rest := line
			for rest != "" {
				idx := strings.IndexByte(rest, ',')
				run := rest
				if idx >= 0 {
					run = rest[:idx]
				}
				if err := syncCheck(idxM); err != nil {
					return err
				}
				for i := 0; i < len(run); i++ {
					ch := run[i]
					if strings.IndexByte(noteSymbols, ch) < 0 {
						warns.Addf("不明な音符記号 %q を無視します", string(ch))
						continue
					}
					for _, branch := range targets() {
						measure := branches[branch][idxM]
						measure.Notes = append(measure.Notes, ch)
					}
				}
				if idx < 0 {
					break
				}
				// `,` で小節を確定して次の小節を開始する
				for _, branch := range targets() {
					branches[branch] = append(branches[branch], &Measure{})
				}
				idxM++
				rest = rest[idx+1:]
			}
			continue
		}

		command := m[1]
		value := strings.TrimSpace(m[2])

		var evErr error
		switch command {
		case "GOGOSTART":
			evErr = appendEvent(idxM, "gogo", "1")
		case "GOGOEND":
			evErr = appendEvent(idxM, "gogo", "0")
		case "BARLINEON":
			evErr = appendEvent(idxM, "barline", "1")
		case "BARLINEOFF":
			evErr = appendEvent(idxM, "barline", "0")
		case "DELAY":
			evErr = appendEvent(idxM, "delay", value)
		case "SCROLL":
			evErr = appendEvent(idxM, "scroll", value)
		case "BPMCHANGE":
			evErr = appendEvent(idxM, "bpm", value)
		case "MEASURE":
			evErr = appendEvent(idxM, "measure", value)
		case "LEVELHOLD":
			evErr = appendEvent(idxM, "levelhold", "")
		case "SENOTECHANGE":
			evErr = appendEvent(idxM, "senote", value)
		case "SECTION":
			// #SECTIONの直後に#BRANCHSTARTが続く場合は全分岐に記録する。
			// 単独の#SECTIONは直前の分岐条件を再発行して精度をリセットする
			if idxL+1 < len(c.Data) && strings.HasPrefix(c.Data[idxL+1], "#BRANCHSTART") {
				currentBranch = "all"
				evErr = appendEvent(idxM, "section", "1")
			} else if branchCondition != "" {
				evErr = appendEvent(idxM, "branch_start", branchCondition)
			} else {
				evErr = appendEvent(idxM, "section", "1")
			}
		case "BRANCHSTART":
			currentBranch = "all"
			seenBranchstart = true
			branchCondition = value
			idxMBranchstart = idxM
			evErr = appendEvent(idxM, "branch_start", value)
		case "N", "E", "M":
			if !seenBranchstart {
				warns.Addf("#BRANCHSTARTのない#%sを無視します", command)
				continue
			}
			switch command {
			case "N":
				currentBranch = BranchNormal
			case "E":
				currentBranch = BranchAdvanced
			case "M":
				currentBranch = BranchMaster
			}
			// 分岐ごとの小節は#BRANCHSTART地点から数え直す
			idxM = idxMBranchstart
		case "BRANCHEND":
			if !seenBranchstart {
				return newParseError(0, ErrUnmatchedBranchEnd)
			}
			currentBranch = "all"
		case "START", "END":
			if hasBranches {
				currentBranch = "all"
			} else {
				currentBranch = BranchNormal
			}
		default:
			warns.Addf("未対応のコマンド #%s を無視します", command)
		}
		if evErr != nil {
			return evErr
		}
	}

	// 末尾の空小節を取り除く（小節確定のたびに先行して確保しているため）
	for branch, measures := range branches {
		if n := len(measures); n > 0 {
			last := measures[n-1]
			if len(last.Notes) == 0 && len(last.Events) == 0 {
				branches[branch] = measures[:n-1]
			}
		}
	}

	// 音符とコマンドを小節内の位置順に統合する。同じ位置では
	// コマンドが先に来て、その位置以降の音符へ状態が反映される
	for _, measures := range branches {
		for _, measure := range measures {
			buildCombined(measure)
		}
	}

	// 分岐がある場合は3つの分岐の小節数が揃っていなければならない
	if hasBranches {
		n := len(branches[BranchNormal])
		for _, branch := range BranchNames {
			if len(branches[branch]) != n {
				return newParseError(0, fmt.Errorf("%w: normal=%d %s=%d",
					ErrBranchLength, n, branch, len(branches[branch])))
			}
		}
	} else {
		// 分岐のない譜面はnormalだけを残す
		branches[BranchAdvanced] = nil
		branches[BranchMaster] = nil
	}

	c.Branches = branches
	return nil
}

// buildCombined は音符イベントとコマンドイベントを位置順に統合します
func buildCombined(m *Measure) {
	var notes []Event
	for i := 0; i < len(m.Notes); i++ {
		if m.Notes[i] == '0' {
			continue
		}
		notes = append(notes, Event{Name: "note", Value: string(m.Notes[i]), Pos: i})
	}

	events := append([]Event(nil), m.Events...)
	for len(notes) > 0 || len(events) > 0 {
		switch {
		case len(events) > 0 && len(notes) > 0:
			if notes[0].Pos >= events[0].Pos {
				m.Combined = append(m.Combined, events[0])
				events = events[1:]
			} else {
				m.Combined = append(m.Combined, notes[0])
				notes = notes[1:]
			}
		case len(events) > 0:
			m.Combined = append(m.Combined, events[0])
			events = events[1:]
		default:
			m.Combined = append(m.Combined, notes[0])
			notes = notes[1:]
		}
	}
}
