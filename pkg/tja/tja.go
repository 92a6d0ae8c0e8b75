// Package tja は太鼓の達人の創作譜面フォーマット（.tjaファイル）を読み込むためのパッケージです。
//
// TJAファイルは行指向のテキストフォーマットで、`KEY:VALUE` 形式のメタデータと、
// `#START` から `#END` までの譜面本体で構成されます。本体は `,` で区切られた
// 小節の列で、小節内の各文字が1つの音符（または空白）を表します。
//
// 基本的な使い方:
//
//	song, err := tja.Parse("example.tja")
//	if err != nil {
//	    // エラー処理...
//	}
//	for name, course := range song.Courses {
//	    branches, err := tja.CompileCourse(course, song.Warnings)
//	    // コースを処理...
//	}
package tja

import "sort"

// 譜面分岐の名前。フマーン側の分岐スロットの並び順と一致します
const (
	BranchNormal   = "normal"
	BranchAdvanced = "advanced"
	BranchMaster   = "master"
)

// BranchNames は分岐名を固定順で保持します
var BranchNames = [3]string{BranchNormal, BranchAdvanced, BranchMaster}

// Difficulty はコースの難易度を表します
type Difficulty int

// 難易度の定数。値はフマーンヘッダの難易度バイトと一致します
const (
	DifficultyEasy Difficulty = iota
	DifficultyNormal
	DifficultyHard
	DifficultyOni
	DifficultyUra
)

// String は難易度の表記名を返します
func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyNormal:
		return "Normal"
	case DifficultyHard:
		return "Hard"
	case DifficultyOni:
		return "Oni"
	case DifficultyUra:
		return "Ura"
	}
	return "Unknown"
}

// ID は出力ファイル名に使う難易度IDを返します（例: Oni -> "m"）
func (d Difficulty) ID() string {
	switch d {
	case DifficultyEasy:
		return "e"
	case DifficultyNormal:
		return "n"
	case DifficultyHard:
		return "h"
	case DifficultyOni:
		return "m"
	case DifficultyUra:
		return "x"
	}
	return "m"
}

// Style は譜面の演奏形式を表します
type Style int

// 演奏形式の定数
const (
	StyleSingle Style = iota
	StyleDouble
)

// Player は二人用譜面のプレイヤー側を表します
type Player int

// プレイヤーの定数
const (
	PlayerNone Player = iota
	PlayerP1
	PlayerP2
)

// Suffix は出力ファイル名に付くプレイヤー接尾辞を返します
func (p Player) Suffix() string {
	switch p {
	case PlayerP1:
		return "1"
	case PlayerP2:
		return "2"
	}
	return ""
}

// Event は小節内の1つの音符または1つのコマンドを表します。
// Pos は小節先頭からの細分位置（0起点）で、Pos == len(notes) は
// 小節末尾（小節線の直前）を意味します。
type Event struct {
	Name  string
	Value string
	Pos   int
}

// Measure は `,` で区切られた1小節分のデータを保持します
type Measure struct {
	// Notes は細分ごとの音符記号（'0'〜'9'、'A'〜'I'）
	Notes []byte
	// Events は小節内に置かれたコマンドのイベント列
	Events []Event
	// Combined は音符とコマンドを位置順にまとめた列。parseCourseData が構築します
	Combined []Event
}

// Course は1つの `COURSE:` セクションのデータを保持します
type Course struct {
	Difficulty Difficulty
	Level      int
	Balloon    []int
	ScoreInit  int
	ScoreDiff  int
	Style      Style
	Player     Player
	BPM        float64
	Offset     float64

	// Data は未解析の譜面本体の行
	Data []string
	// Branches は分岐ごとの小節列。分岐のない譜面では normal のみ埋まります
	Branches map[string][]*Measure
}

// Song は1つの .tja ファイル全体のデータを保持します
type Song struct {
	BPM    float64
	Offset float64
	// Courses は "Oni" や "OniP1" のようなコース名をキーとします
	Courses map[string]*Course
	// Encoding は入力の判別結果（"utf-8" など）
	Encoding string
	// Warnings は解析と変換で蓄積された診断メッセージ
	Warnings *Warnings
}

// CourseNames はコース名をソート済みで返します
func (s *Song) CourseNames() []string {
	names := make([]string, 0, len(s.Courses))
	for name := range s.Courses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompiledMeasure はコマンド処理後の1小節分のデータです。
// BPMやスクロール速度は小節ごとに1つしか持てないため、小節の途中で
// これらが変化する場合、元の小節は複数の CompiledMeasure に分割されます。
// PosStart と PosEnd は元の小節の細分位置での担当範囲を表します。
type CompiledMeasure struct {
	BPM          float64
	Scroll       float64
	Gogo         bool
	Barline      bool
	TimeSig      [2]int
	Subdivisions int
	PosStart     int
	PosEnd       int

	// Delay は #DELAY によるミリ秒単位の遅延
	Delay float64
	// Senote は #SENOTECHANGE で指定された音符ボイス（0は未指定）
	Senote int

	Section   bool
	LevelHold bool
	// BranchKind は "p"（精度）、"r"（連打数）、"s"（スコア）のいずれか
	BranchKind string
	BranchCond [2]float64

	// Notes は音符イベントのみの列。Pos は元の小節の細分位置
	Notes []Event
}
