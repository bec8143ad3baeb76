package scan

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/tandempv/xystage/pkg/config"
)

// Point is a scan target in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// ReadPoints parses one "x,y" pair per line. Blank lines and lines starting
// with # are skipped.
func ReadPoints(r io.Reader) ([]Point, error) {
	var points []Point
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, err := parsePoint(text)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "line %d", line)
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read points")
	}
	return points, nil
}

func parsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("expected x,y but got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid y %q", ys)
	}
	return Point{X: x, Y: y}, nil
}

// WritePoints writes points one per line, rounded to 3 decimals.
func WritePoints(w io.Writer, points []Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range points {
		fmt.Fprintf(bw, "%s,%s\n", formatCoord(p.X), formatCoord(p.Y))
	}
	return bw.Flush()
}

func formatCoord(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		// Drop the sign of negative zero.
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func LoadPoints(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open points file")
	}
	defer f.Close()

	points, err := ReadPoints(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "points file %s", path)
	}
	return points, nil
}

// SavePoints replaces the file at path with points.
func SavePoints(path string, points []Point) error {
	return writePointsFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, points)
}

// AppendPoints adds points to the end of the file at path, creating it if
// needed.
func AppendPoints(path string, points []Point) error {
	return writePointsFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, points)
}

func writePointsFile(path string, flag int, points []Point) error {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open points file")
	}
	if err := WritePoints(f, points); err != nil {
		f.Close()
		return pkgerrors.Wrapf(err, "failed to write points file %s", path)
	}
	return f.Close()
}

// ParsePoints parses each argument as an "x,y" pair.
func ParsePoints(args []string) ([]Point, error) {
	points := make([]Point, 0, len(args))
	for i, a := range args {
		p, err := parsePoint(strings.TrimSpace(a))
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "point %d", i+1)
		}
		points = append(points, p)
	}
	return points, nil
}

// Validate checks every point against b before anything moves. The error
// names the first offending point.
func Validate(points []Point, b config.Bounds) error {
	for i, p := range points {
		if err := b.Check(p.X, p.Y); err != nil {
			return pkgerrors.Wrapf(err, "point %d %s", i+1, p)
		}
	}
	return nil
}
