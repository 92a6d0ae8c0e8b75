package tja

import (
	"errors"
	"strings"
	"testing"
)

// compileOni は譜面本体の行からOniコースをコンパイルするテストヘルパー
func compileOni(t *testing.T, body ...string) (map[string][]*CompiledMeasure, *Warnings) {
	t.Helper()
	lines := append([]string{"BPM:120", "OFFSET:0", "COURSE:Oni", "#START"}, body...)
	lines = append(lines, "#END")
	song, err := ParseText(strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	course := song.Courses["Oni"]
	compiled, err := CompileCourse(course, song.Warnings)
	if err != nil {
		t.Fatalf("CompileCourse failed: %v", err)
	}
	return compiled, song.Warnings
}

func TestCompileDefaults(t *testing.T) {
	compiled, _ := compileOni(t, "1010,")
	normal := compiled[BranchNormal]
	if len(normal) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(normal))
	}

	m := normal[0]
	if m.BPM != 120 {
		t.Errorf("BPM = %v; want 120", m.BPM)
	}
	if m.Scroll != 1.0 {
		t.Errorf("Scroll = %v; want 1.0", m.Scroll)
	}
	if m.Gogo {
		t.Errorf("Gogo = true; want false")
	}
	if !m.Barline {
		t.Errorf("Barline = false; want true")
	}
	if m.TimeSig != [2]int{4, 4} {
		t.Errorf("TimeSig = %v; want 4/4", m.TimeSig)
	}
	if m.Subdivisions != 4 || m.PosStart != 0 || m.PosEnd != 4 {
		t.Errorf("subdivisions = %d [%d,%d); want 4 [0,4)", m.Subdivisions, m.PosStart, m.PosEnd)
	}
	if len(m.Notes) != 2 {
		t.Errorf("expected 2 notes, got %d", len(m.Notes))
	}
}

func TestCompileMidMeasureBPMChange(t *testing.T) {
	compiled, _ := compileOni(t, "11", "#BPMCHANGE 240", "11,")
	normal := compiled[BranchNormal]

	// 小節途中のBPM変更で小節が2つに分割される
	if len(normal) != 2 {
		t.Fatalf("expected 2 sub-measures, got %d", len(normal))
	}

	first, second := normal[0], normal[1]
	if first.BPM != 120 || first.PosStart != 0 || first.PosEnd != 2 {
		t.Errorf("first = bpm %v [%d,%d); want 120 [0,2)", first.BPM, first.PosStart, first.PosEnd)
	}
	if second.BPM != 240 || second.PosStart != 2 || second.PosEnd != 4 {
		t.Errorf("second = bpm %v [%d,%d); want 240 [2,4)", second.BPM, second.PosStart, second.PosEnd)
	}
	if first.Subdivisions != 4 || second.Subdivisions != 4 {
		t.Errorf("subdivisions should stay 4: %d, %d", first.Subdivisions, second.Subdivisions)
	}
	if len(first.Notes) != 2 || len(second.Notes) != 2 {
		t.Errorf("notes split = %d + %d; want 2 + 2", len(first.Notes), len(second.Notes))
	}
}

func TestCompileStateFallthrough(t *testing.T) {
	compiled, _ := compileOni(t,
		"1010,",
		"#GOGOSTART",
		"#SCROLL 2",
		"#MEASURE 3/4",
		"2020,",
		"1,",
	)
	normal := compiled[BranchNormal]
	if len(normal) != 3 {
		t.Fatalf("expected 3 measures, got %d", len(normal))
	}

	if normal[0].Gogo || normal[0].Scroll != 1.0 {
		t.Errorf("measure 0 should keep the initial state")
	}
	// 小節頭のコマンドはその小節から有効になる
	if !normal[1].Gogo || normal[1].Scroll != 2.0 || normal[1].TimeSig != [2]int{3, 4} {
		t.Errorf("measure 1 = gogo %v scroll %v sig %v; want true 2.0 3/4",
			normal[1].Gogo, normal[1].Scroll, normal[1].TimeSig)
	}
	// 状態は後続の小節へ引き継がれる
	if !normal[2].Gogo || normal[2].Scroll != 2.0 || normal[2].TimeSig != [2]int{3, 4} {
		t.Errorf("measure 2 should inherit the state")
	}
}

func TestCompileDelayAndBarline(t *testing.T) {
	compiled, _ := compileOni(t,
		"#DELAY 0.5",
		"#BARLINEOFF",
		"1010,",
		"2020,",
	)
	normal := compiled[BranchNormal]
	if normal[0].Delay != 500 {
		t.Errorf("Delay = %v; want 500ms", normal[0].Delay)
	}
	if normal[0].Barline {
		t.Errorf("measure 0 barline should be off")
	}
	if normal[1].Barline {
		t.Errorf("barline state should carry over")
	}
	if normal[1].Delay != 0 {
		t.Errorf("delay should not carry over: %v", normal[1].Delay)
	}
}

func TestCompileSenoteChange(t *testing.T) {
	compiled, _ := compileOni(t, "#SENOTECHANGE 2", "11,")
	normal := compiled[BranchNormal]
	if len(normal) != 1 {
		t.Fatalf("expected 1 measure, got %d", len(normal))
	}
	if normal[0].Senote != 2 {
		t.Errorf("Senote = %d; want 2", normal[0].Senote)
	}
}

func TestCompileBranchCondition(t *testing.T) {
	compiled, _ := compileOni(t,
		"1010,",
		"#BRANCHSTART r,2,4",
		"#N",
		"1,",
		"#E",
		"2,",
		"#M",
		"3,",
		"#BRANCHEND",
	)
	normal := compiled[BranchNormal]
	if len(normal) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(normal))
	}
	if normal[1].BranchKind != "r" {
		t.Errorf("BranchKind = %q; want r", normal[1].BranchKind)
	}
	if normal[1].BranchCond != [2]float64{2, 4} {
		t.Errorf("BranchCond = %v; want [2 4]", normal[1].BranchCond)
	}
}

func TestCompileInvalidBranchKind(t *testing.T) {
	lines := []string{
		"BPM:120", "OFFSET:0", "COURSE:Oni", "#START",
		"1,",
		"#BRANCHSTART x,1,2",
		"#N", "1,", "#E", "1,", "#M", "1,",
		"#BRANCHEND", "#END",
	}
	song, err := ParseText(strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	_, err = CompileCourse(song.Courses["Oni"], song.Warnings)
	if !errors.Is(err, ErrInvalidBranchKind) {
		t.Errorf("error = %v; want ErrInvalidBranchKind", err)
	}
}
