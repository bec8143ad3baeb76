package scan

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tandempv/xystage/pkg/config"
)

func TestReadPoints(t *testing.T) {
	in := `# sample grid
10,20
  12.5 , 0

-1.25,3e1
# trailing comment
`
	got, err := ReadPoints(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPoints() error: %v", err)
	}
	want := []Point{{10, 20}, {12.5, 0}, {-1.25, 30}}
	if len(got) != len(want) {
		t.Fatalf("ReadPoints() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadPointsErrors(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"missing comma", "10 20\n", "line 1"},
		{"bad x", "1,2\nabc,2\n", "line 2: invalid x"},
		{"bad y", "1,2\n\n3,\n", "line 3: invalid y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPoints(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ReadPoints() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestWritePointsRounds(t *testing.T) {
	var buf bytes.Buffer
	err := WritePoints(&buf, []Point{{1.23456, 2}, {-0.0001, 150.9999}, {10, 0.5}})
	if err != nil {
		t.Fatalf("WritePoints() error: %v", err)
	}
	want := "1.235,2\n0,151\n10,0.5\n"
	if buf.String() != want {
		t.Errorf("WritePoints() wrote %q, want %q", buf.String(), want)
	}
}

func TestSaveLoadPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.txt")
	points := []Point{{0, 0}, {12.345, 67.891}, {200, 200}}
	if err := SavePoints(path, points); err != nil {
		t.Fatalf("SavePoints() error: %v", err)
	}
	got, err := LoadPoints(path)
	if err != nil {
		t.Fatalf("LoadPoints() error: %v", err)
	}
	if len(got) != len(points) {
		t.Fatalf("LoadPoints() = %v, want %v", got, points)
	}
	for i := range points {
		if got[i] != points[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], points[i])
		}
	}

	if _, err := LoadPoints(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Errorf("LoadPoints() of a missing file succeeded")
	}
}

func TestAppendPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.txt")
	if err := AppendPoints(path, []Point{{1, 2}}); err != nil {
		t.Fatalf("AppendPoints() on a new file: %v", err)
	}
	if err := AppendPoints(path, []Point{{3.0004, 4}}); err != nil {
		t.Fatalf("AppendPoints() error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "1,2\n3,4\n" {
		t.Errorf("file = %q, want %q", b, "1,2\n3,4\n")
	}

	if err := SavePoints(path, []Point{{5, 6}}); err != nil {
		t.Fatalf("SavePoints() error: %v", err)
	}
	if b, _ := os.ReadFile(path); string(b) != "5,6\n" {
		t.Errorf("file after SavePoints() = %q, want it replaced", b)
	}
}

func TestParsePoints(t *testing.T) {
	got, err := ParsePoints([]string{"1,2", " 3.5 , 0 "})
	if err != nil {
		t.Fatalf("ParsePoints() error: %v", err)
	}
	if len(got) != 2 || got[0] != (Point{1, 2}) || got[1] != (Point{3.5, 0}) {
		t.Errorf("ParsePoints() = %v", got)
	}
	if _, err := ParsePoints([]string{"1,2", "3"}); err == nil || !strings.Contains(err.Error(), "point 2") {
		t.Errorf("ParsePoints() with a bad pair = %v, want an error naming point 2", err)
	}
}

func TestValidate(t *testing.T) {
	b := config.Bounds{XMin: 0, XMax: 100, YMin: 0, YMax: 100}
	if err := Validate([]Point{{0, 0}, {100, 100}}, b); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	err := Validate([]Point{{1, 1}, {50, 50}, {101, 0}}, b)
	if !errors.Is(err, config.ErrOutOfBounds) || !strings.Contains(err.Error(), "point 3") {
		t.Errorf("Validate() = %v, want ErrOutOfBounds naming point 3", err)
	}
}
