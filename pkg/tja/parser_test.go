package tja

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNumberLines(t *testing.T) {
	text := "BPM:120\r\n// コメント行\nOFFSET:0 // 行内コメント\n\n  #START  \n"
	want := []numberedLine{
		{text: "BPM:120", num: 1},
		{text: "OFFSET:0", num: 3},
		{text: "#START", num: 5},
	}
	got := numberLines(text)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("numberLines = %v; want %v", got, want)
	}
}

func TestParseTextMinimal(t *testing.T) {
	song, err := ParseText("BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n1010,\n#END\n")
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	if song.BPM != 120 {
		t.Errorf("BPM = %v; want 120", song.BPM)
	}
	if song.Offset != 0 {
		t.Errorf("Offset = %v; want 0", song.Offset)
	}
	if len(song.Courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(song.Courses))
	}

	course, ok := song.Courses["Oni"]
	if !ok {
		t.Fatalf("course Oni not found: %v", song.CourseNames())
	}
	if course.Difficulty != DifficultyOni {
		t.Errorf("Difficulty = %v; want Oni", course.Difficulty)
	}
	if course.BPM != 120 {
		t.Errorf("course BPM = %v; want 120", course.BPM)
	}

	normal := course.Branches[BranchNormal]
	if len(normal) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(normal))
	}
	if string(normal[0].Notes) != "1010" {
		t.Errorf("Notes = %q; want %q", normal[0].Notes, "1010")
	}
	if len(course.Branches[BranchAdvanced]) != 0 {
		t.Errorf("expected empty advanced branch")
	}
}

func TestParseTextMetadata(t *testing.T) {
	text := strings.Join([]string{
		"TITLE:テスト曲",
		"BPM:180.5",
		"OFFSET:-1.5",
		"COURSE:Hard",
		"LEVEL:12",
		"BALLOON:5,10,20",
		"SCOREINIT:300,650",
		"SCOREDIFF:120",
		"#START",
		"1,",
		"#END",
	}, "\n")

	song, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	course := song.Courses["Hard"]
	if course == nil {
		t.Fatalf("course Hard not found")
	}
	// 範囲外のLEVELは丸められて警告になる
	if course.Level != 10 {
		t.Errorf("Level = %d; want 10", course.Level)
	}
	if song.Warnings.Len() == 0 {
		t.Errorf("expected a warning for the clamped LEVEL")
	}
	if len(course.Balloon) != 3 || course.Balloon[1] != 10 {
		t.Errorf("Balloon = %v; want [5 10 20]", course.Balloon)
	}
	// 真打と併記された値は最後の要素を使う
	if course.ScoreInit != 650 {
		t.Errorf("ScoreInit = %d; want 650", course.ScoreInit)
	}
	if course.ScoreDiff != 120 {
		t.Errorf("ScoreDiff = %d; want 120", course.ScoreDiff)
	}
	if song.Offset != -1.5 {
		t.Errorf("Offset = %v; want -1.5", song.Offset)
	}
}

func TestParseTextDoubleStyle(t *testing.T) {
	text := strings.Join([]string{
		"BPM:120",
		"OFFSET:0",
		"COURSE:Oni",
		"STYLE:Double",
		"BALLOON:8",
		"#START P1",
		"1010,",
		"#END",
		"#START P2",
		"2020,",
		"#END",
	}, "\n")

	song, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	if len(song.Courses) != 2 {
		t.Fatalf("expected 2 courses, got %d: %v", len(song.Courses), song.CourseNames())
	}

	p1 := song.Courses["OniP1"]
	p2 := song.Courses["OniP2"]
	if p1 == nil || p2 == nil {
		t.Fatalf("P1/P2 courses not found: %v", song.CourseNames())
	}
	if p1.Style != StyleDouble || p2.Style != StyleDouble {
		t.Errorf("expected StyleDouble on both courses")
	}
	if p1.Player != PlayerP1 || p2.Player != PlayerP2 {
		t.Errorf("Player = %v/%v; want P1/P2", p1.Player, p2.Player)
	}
	// 二人用譜面はコース全体のメタデータを引き継ぐ
	if len(p1.Balloon) != 1 || p1.Balloon[0] != 8 {
		t.Errorf("P1 Balloon = %v; want [8]", p1.Balloon)
	}
	if string(p1.Branches[BranchNormal][0].Notes) != "1010" {
		t.Errorf("P1 notes = %q; want 1010", p1.Branches[BranchNormal][0].Notes)
	}
	if string(p2.Branches[BranchNormal][0].Notes) != "2020" {
		t.Errorf("P2 notes = %q; want 2020", p2.Branches[BranchNormal][0].Notes)
	}
}

func TestParseTextBranches(t *testing.T) {
	text := strings.Join([]string{
		"BPM:120",
		"OFFSET:0",
		"COURSE:Oni",
		"#START",
		"1010,",
		"#BRANCHSTART p,50,80",
		"#N",
		"1010,",
		"#E",
		"2020,",
		"#M",
		"3030,",
		"#BRANCHEND",
		"#END",
	}, "\n")

	song, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	course := song.Courses["Oni"]
	for _, branch := range BranchNames {
		if len(course.Branches[branch]) != 2 {
			t.Fatalf("%s: expected 2 measures, got %d", branch, len(course.Branches[branch]))
		}
	}

	// 分岐前の小節は全分岐で共通
	for _, branch := range BranchNames {
		if string(course.Branches[branch][0].Notes) != "1010" {
			t.Errorf("%s measure 0 = %q; want 1010", branch, course.Branches[branch][0].Notes)
		}
	}
	if string(course.Branches[BranchAdvanced][1].Notes) != "2020" {
		t.Errorf("advanced measure 1 = %q; want 2020", course.Branches[BranchAdvanced][1].Notes)
	}
	if string(course.Branches[BranchMaster][1].Notes) != "3030" {
		t.Errorf("master measure 1 = %q; want 3030", course.Branches[BranchMaster][1].Notes)
	}

	// #BRANCHSTARTのイベントは分岐直後の小節の先頭に記録される
	events := course.Branches[BranchNormal][1].Events
	found := false
	for _, ev := range events {
		if ev.Name == "branch_start" && ev.Value == "p,50,80" && ev.Pos == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("branch_start event not found: %v", events)
	}
}

func TestParseTextEmptyMeasure(t *testing.T) {
	song, err := ParseText("BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n1010,\n,\n2020,\n#END\n")
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	normal := song.Courses["Oni"].Branches[BranchNormal]
	if len(normal) != 3 {
		t.Fatalf("expected 3 measures, got %d", len(normal))
	}
	if len(normal[1].Notes) != 0 {
		t.Errorf("measure 1 should be empty, got %q", normal[1].Notes)
	}
}

func TestParseTextMultipleMeasuresPerLine(t *testing.T) {
	song, err := ParseText("BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n1010,2020,\n#END\n")
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	normal := song.Courses["Oni"].Branches[BranchNormal]
	if len(normal) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(normal))
	}
	if string(normal[0].Notes) != "1010" || string(normal[1].Notes) != "2020" {
		t.Errorf("notes = %q, %q; want 1010, 2020", normal[0].Notes, normal[1].Notes)
	}
}

func TestParseTextErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{
			name: "BPMなし",
			text: "OFFSET:0\nCOURSE:Oni\n#START\n1,\n#END\n",
			want: ErrMissingBPM,
		},
		{
			name: "OFFSETなし",
			text: "BPM:120\nCOURSE:Oni\n#START\n1,\n#END\n",
			want: ErrMissingOffset,
		},
		{
			name: "BPMが数値でない",
			text: "BPM:abc\nOFFSET:0\nCOURSE:Oni\n#START\n1,\n#END\n",
			want: ErrInvalidBPM,
		},
		{
			name: "本体の外の#END",
			text: "BPM:120\nOFFSET:0\nCOURSE:Oni\n#END\n",
			want: ErrEndOutsideBody,
		},
		{
			name: "入れ子の#START",
			text: "BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n#START\n#END\n",
			want: ErrNestedStart,
		},
		{
			name: "対応しない#BRANCHEND",
			text: "BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n1,\n#BRANCHEND\n#END\n",
			want: ErrUnmatchedBranchEnd,
		},
		{
			name: "コースの重複",
			text: "BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n1,\n#END\nCOURSE:Oni\n#START\n2,\n#END\n",
			want: ErrDuplicateCourse,
		},
		{
			name: "不明なCOURSE値",
			text: "BPM:120\nOFFSET:0\nCOURSE:Extreme\n#START\n1,\n#END\n",
			want: ErrInvalidCourse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseText(tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v; want %v", err, tt.want)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error is not a *ParseError: %T", err)
			}
		})
	}
}

func TestParseTextUnknownCommand(t *testing.T) {
	song, err := ParseText("BPM:120\nOFFSET:0\nCOURSE:Oni\n#START\n#LYRIC あいうえお\n1010,\n#END\n")
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	if song.Warnings.Len() == 0 {
		t.Errorf("expected a warning for the unknown command")
	}
	if len(song.Courses["Oni"].Branches[BranchNormal]) != 1 {
		t.Errorf("unknown command should not affect measures")
	}
}
