package tja

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timeSigPattern = regexp.MustCompile(`^(\d+)/(\d+)$`)

// CompileCourse はコースの小節列へコマンドの状態を織り込み、分岐ごとの
// CompiledMeasure 列を作ります。
//
// BPM、スクロール速度、ゴーゴータイム、音符ボイスは小節ごとに1つしか
// 持てないため、小節の途中でこれらが変化する場合、その小節は複数の
// CompiledMeasure に分割されます。分割後の小節数は分岐間で一致して
// いなければなりません。
//
// 3分岐に共通する小節はどの分岐にも現れるため、診断メッセージの重複を
// 避ける目的で警告はnormal分岐の処理でのみ記録します。
func CompileCourse(c *Course, warns *Warnings) (map[string][]*CompiledMeasure, error) {
	compiled := make(map[string][]*CompiledMeasure)
	for i, branch := range BranchNames {
		measures := c.Branches[branch]
		if len(measures) == 0 {
			compiled[branch] = nil
			continue
		}
		branchWarns := warns
		if i > 0 {
			branchWarns = nil
		}
		out, err := compileBranch(c, measures, branchWarns)
		if err != nil {
			return nil, err
		}
		compiled[branch] = out
	}

	// 分割処理の後でも分岐間の小節数が揃っていることを確認する
	n := -1
	for _, branch := range BranchNames {
		if len(compiled[branch]) == 0 {
			continue
		}
		if n < 0 {
			n = len(compiled[branch])
			continue
		}
		if len(compiled[branch]) != n {
			return nil, newParseError(0, fmt.Errorf("%w: 小節内コマンドの分割後に%s側が%d小節になりました",
				ErrBranchLength, branch, len(compiled[branch])))
		}
	}

	return compiled, nil
}

// compileBranch は1分岐分の小節列へ状態コマンドを適用します
func compileBranch(c *Course, measures []*Measure, warns *Warnings) ([]*CompiledMeasure, error) {
	var (
		bpm      = c.BPM
		scroll   = 1.0
		gogo     = false
		barline  = true
		dividend = 4
		divisor  = 4
		senote   = 0
	)

	var out []*CompiledMeasure
	for _, m := range measures {
		cur := &CompiledMeasure{
			BPM:          bpm,
			Scroll:       scroll,
			Gogo:         gogo,
			Barline:      barline,
			TimeSig:      [2]int{dividend, divisor},
			Subdivisions: len(m.Notes),
			Senote:       senote,
		}

		for _, ev := range m.Combined {
			switch ev.Name {
			case "note":
				cur.Notes = append(cur.Notes, ev)

			// 小節単位でのみ意味を持つコマンド
			case "delay":
				v, err := strconv.ParseFloat(ev.Value, 64)
				if err != nil {
					warns.Addf("#DELAYの値が数値ではありません: %q", ev.Value)
					continue
				}
				cur.Delay = v * 1000
			case "branch_start":
				kind, cond, err := parseBranchCondition(ev.Value)
				if err != nil {
					return nil, err
				}
				cur.BranchKind = kind
				cur.BranchCond = cond
			case "section":
				cur.Section = true
			case "levelhold":
				cur.LevelHold = true
			case "barline":
				barline = ev.Value == "1"
				cur.Barline = barline
			case "measure":
				sig := timeSigPattern.FindStringSubmatch(ev.Value)
				if sig == nil {
					warns.Addf("#MEASUREの値を解釈できません: %q", ev.Value)
					continue
				}
				num, _ := strconv.Atoi(sig[1])
				den, _ := strconv.Atoi(sig[2])
				if num < 1 || den < 1 {
					warns.Addf("#MEASUREの値を解釈できません: %q", ev.Value)
					continue
				}
				dividend, divisor = num, den
				cur.TimeSig = [2]int{dividend, divisor}

			// 小節の途中に置ける状態コマンド。途中で現れた場合は
			// 小節を分割して以降の音符へ新しい状態を適用する
			case "bpm", "scroll", "gogo", "senote":
				switch ev.Name {
				case "bpm":
					v, err := strconv.ParseFloat(ev.Value, 64)
					if err != nil || v <= 0 {
						warns.Addf("#BPMCHANGEの値を解釈できません: %q", ev.Value)
						continue
					}
					bpm = v
				case "scroll":
					v, err := strconv.ParseFloat(ev.Value, 64)
					if err != nil {
						warns.Addf("#SCROLLの値を解釈できません: %q", ev.Value)
						continue
					}
					scroll = v
				case "gogo":
					gogo = ev.Value == "1"
				case "senote":
					v, err := strconv.Atoi(ev.Value)
					if err != nil || v < 0 || v > 5 {
						warns.Addf("#SENOTECHANGEの値を解釈できません: %q", ev.Value)
						continue
					}
					senote = v
				}

				if ev.Pos == cur.PosStart {
					// 小節頭（または分割直後）のコマンドはそのまま反映する
					cur.BPM = bpm
					cur.Scroll = scroll
					cur.Gogo = gogo
					cur.Senote = senote
				} else {
					cur.PosEnd = ev.Pos
					out = append(out, cur)
					cur = &CompiledMeasure{
						BPM:          bpm,
						Scroll:       scroll,
						Gogo:         gogo,
						Barline:      barline,
						TimeSig:      [2]int{dividend, divisor},
						Subdivisions: len(m.Notes),
						PosStart:     ev.Pos,
						Senote:       senote,
					}
				}

			default:
				warns.Addf("不明なイベント %q を無視します", ev.Name)
			}
		}

		cur.PosEnd = len(m.Notes)
		out = append(out, cur)
	}

	return out, nil
}

// parseBranchCondition は#BRANCHSTARTの引数を解釈します。
// 種別は p（精度%）、r（連打数）、s（スコア）のいずれかです。
func parseBranchCondition(value string) (string, [2]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return "", [2]float64{}, newParseError(0, fmt.Errorf("%w: %q", ErrInvalidBranchKind, value))
	}
	kind := strings.TrimSpace(parts[0])
	switch kind {
	case "p", "r", "s":
	default:
		return "", [2]float64{}, newParseError(0, fmt.Errorf("%w: %q", ErrInvalidBranchKind, kind))
	}
	var cond [2]float64
	for i := 0; i < 2; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return "", [2]float64{}, newParseError(0, fmt.Errorf("%w: しきい値が数値ではありません: %q",
				ErrInvalidBranchKind, parts[i+1]))
		}
		cond[i] = v
	}
	return kind, cond, nil
}
