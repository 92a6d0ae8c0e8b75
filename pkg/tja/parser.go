package tja

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	metadataPattern = regexp.MustCompile(`^([A-Za-z0-9]+):(.*)$`)
	commandPattern  = regexp.MustCompile(`^#([A-Z]+)(?:\s+(.+))?$`)
)

// Parse は .tja ファイルを読み込んで Song を構築します
func Parse(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes はバイト列から Song を構築します。
// 文字コードの判別は Decode が行います。
func ParseBytes(data []byte) (*Song, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	song, err := parseText(text)
	if err != nil {
		return nil, err
	}
	song.Encoding = enc
	return song, nil
}

// ParseText はUTF-8文字列から Song を構築します
func ParseText(text string) (*Song, error) {
	song, err := parseText(text)
	if err != nil {
		return nil, err
	}
	song.Encoding = EncodingUTF8
	return song, nil
}

// numberedLine は行テキストと元ファイルでの1起点の行番号を保持します
type numberedLine struct {
	text string
	num  int
}

// numberLines はテキストを論理行に分割し、元ファイルでの行番号を付けます。
// 行は `\n` または `\r\n` で区切られ、`//` 以降のコメントを取り除き、
// 前後の空白を削った結果が空の行は捨てられます
func numberLines(text string) []numberedLine {
	var lines []numberedLine
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, numberedLine{text: line, num: i + 1})
		}
	}
	return lines
}

// parseText はメタデータを処理しつつ、譜面本体をコースごとに振り分けます。
// 本体の中身（音符とコマンド）の解析は parseCourseData が行います。
func parseText(text string) (*Song, error) {
	song := &Song{
		Courses:  make(map[string]*Course),
		Warnings: NewWarnings(),
	}

	// コースを取得または作成するヘルパー
	course := func(key string, diff Difficulty) *Course {
		if c, ok := song.Courses[key]; ok {
			return c
		}
		c := &Course{Difficulty: diff, Level: 1}
		song.Courses[key] = c
		return c
	}

	var (
		haveBPM     bool
		haveOffset  bool
		currentDiff = DifficultyOni
		currentBase = ""
		currentKey  = ""
		inBody      = false
		current     *Course
	)

	for _, ln := range numberLines(text) {
		// 譜面本体の中
		if inBody {
			if m := commandPattern.FindStringSubmatch(ln.text); m != nil {
				switch m[1] {
				case "START":
					return nil, newParseError(ln.num, ErrNestedStart)
				case "END":
					current.Data = append(current.Data, "#END")
					inBody = false
					continue
				}
			}
			current.Data = append(current.Data, ln.text)
			continue
		}

		// メタデータ行
		if m := metadataPattern.FindStringSubmatch(ln.text); m != nil && !strings.HasPrefix(ln.text, "#") {
			key := strings.ToUpper(m[1])
			value := strings.TrimSpace(m[2])

			switch key {
			case "BPM":
				bpm, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, newParseError(ln.num, ErrInvalidBPM)
				}
				song.BPM = bpm
				haveBPM = true
			case "OFFSET":
				offset, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, newParseError(ln.num, ErrInvalidOffset)
				}
				song.Offset = offset
				haveOffset = true
			case "COURSE":
				diff, ok := parseDifficulty(value)
				if !ok {
					return nil, newParseError(ln.num, fmt.Errorf("%w: %q", ErrInvalidCourse, value))
				}
				currentDiff = diff
				currentBase = diff.String()
				currentKey = currentBase
				course(currentKey, currentDiff)
			case "LEVEL":
				if currentKey == "" {
					song.Warnings.Addf("COURSEの前のLEVEL指定を無視します")
					continue
				}
				level, err := strconv.Atoi(value)
				if err != nil {
					return nil, newParseError(ln.num, fmt.Errorf("LEVELの値が数値ではありません: %q", value))
				}
				if level < 1 || level > 10 {
					clamped := min(10, max(1, level))
					song.Warnings.Addf("LEVEL %d は範囲外のため %d に丸めます", level, clamped)
					level = clamped
				}
				course(currentKey, currentDiff).Level = level
			case "BALLOON":
				if currentKey == "" {
					continue
				}
				var balloons []int
				for _, v := range strings.Split(value, ",") {
					v = strings.TrimSpace(v)
					if v == "" {
						continue
					}
					n, err := strconv.Atoi(v)
					if err != nil {
						return nil, newParseError(ln.num, fmt.Errorf("BALLOONの値が数値ではありません: %q", v))
					}
					balloons = append(balloons, n)
				}
				course(currentKey, currentDiff).Balloon = balloons
			case "SCOREINIT":
				if currentKey == "" {
					continue
				}
				course(currentKey, currentDiff).ScoreInit = lastIntValue(value)
			case "SCOREDIFF":
				if currentKey == "" {
					continue
				}
				course(currentKey, currentDiff).ScoreDiff = lastIntValue(value)
			case "STYLE":
				switch strings.ToLower(value) {
				case "single":
					// 以前のSTYLE:DoubleでP1/P2が付いていても基本コースへ戻す
					currentKey = currentBase
				case "double", "couple":
					if currentKey != "" {
						course(currentKey, currentDiff).Style = StyleDouble
					}
				default:
					song.Warnings.Addf("不明なSTYLE値 %q を無視します", value)
				}
			default:
				// TITLEやWAVEなど変換に関係しないキーは黙って無視する
			}
			continue
		}

		// コマンド行
		if m := commandPattern.FindStringSubmatch(ln.text); m != nil {
			switch m[1] {
			case "START":
				arg := strings.TrimSpace(m[2])
				if currentBase == "" {
					song.Warnings.Addf("COURSE指定のない#STARTのためOniとして扱います")
					currentDiff = DifficultyOni
					currentBase = currentDiff.String()
					currentKey = currentBase
				}
				switch arg {
				case "":
					currentKey = currentBase
				case "P1", "P2":
					key := currentBase + arg
					if existing, ok := song.Courses[key]; ok && len(existing.Data) > 0 {
						return nil, newParseError(ln.num, fmt.Errorf("%w: %s", ErrDuplicateCourse, key))
					}
					// 二人用譜面はコース全体のメタデータを引き継ぐ
					base := course(currentBase, currentDiff)
					c := &Course{
						Difficulty: base.Difficulty,
						Level:      base.Level,
						Balloon:    append([]int(nil), base.Balloon...),
						ScoreInit:  base.ScoreInit,
						ScoreDiff:  base.ScoreDiff,
						Style:      StyleDouble,
					}
					if arg == "P1" {
						c.Player = PlayerP1
					} else {
						c.Player = PlayerP2
					}
					song.Courses[key] = c
					currentKey = key
				default:
					song.Warnings.Addf("不明な#START引数 %q を無視します", arg)
					currentKey = currentBase
				}
				current = course(currentKey, currentDiff)
				if len(current.Data) > 0 {
					return nil, newParseError(ln.num, fmt.Errorf("%w: %s", ErrDuplicateCourse, currentKey))
				}
				current.Data = append(current.Data, "#START")
				inBody = true
			case "END":
				return nil, newParseError(ln.num, ErrEndOutsideBody)
			case "BRANCHEND":
				return nil, newParseError(ln.num, ErrUnmatchedBranchEnd)
			default:
				song.Warnings.Addf("譜面本体の外のコマンド #%s を無視します", m[1])
			}
			continue
		}

		song.Warnings.Addf("解釈できない行を無視します: %q", ln.text)
	}

	if inBody {
		song.Warnings.Addf("#ENDがないまま終端に達しました")
		current.Data = append(current.Data, "#END")
	}
	if !haveBPM {
		return nil, newParseError(0, ErrMissingBPM)
	}
	if !haveOffset {
		return nil, newParseError(0, ErrMissingOffset)
	}

	// 本体のないコースを取り除く
	for key, c := range song.Courses {
		if len(c.Data) == 0 {
			delete(song.Courses, key)
		}
	}

	// 曲全体のBPMとOFFSETを各コースへ引き継いで本体を解析する
	for _, c := range song.Courses {
		c.BPM = song.BPM
		c.Offset = song.Offset
		if err := parseCourseData(c, song.Warnings); err != nil {
			return nil, err
		}
	}

	return song, nil
}

// lastIntValue はカンマ区切り値の最後の要素を整数として返します。
// SCOREINIT:300,600 のような真打と併記された値に対応します。
func lastIntValue(value string) int {
	if value == "" {
		return 0
	}
	parts := strings.Split(value, ",")
	n, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return 0
	}
	return n
}

// parseDifficulty はCOURSE値を難易度に変換します
func parseDifficulty(value string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "easy":
		return DifficultyEasy, true
	case "1", "normal":
		return DifficultyNormal, true
	case "2", "hard":
		return DifficultyHard, true
	case "3", "oni":
		return DifficultyOni, true
	case "4", "ura", "edit":
		return DifficultyUra, true
	}
	return 0, false
}
