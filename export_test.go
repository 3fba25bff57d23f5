package fmsolvers

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func readSteps(t *testing.T, path string) (comments []string, rows [][]string) {
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var body []string
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if strings.HasPrefix(line, "#") {
			comments = append(comments, line)
		} else {
			body = append(body, line)
		}
	}
	rows, err = csv.NewReader(strings.NewReader(strings.Join(body, "\n"))).ReadAll()
	require.NoError(t, err)
	return
}

func TestExportSteps(t *testing.T) {
	dir := t.TempDir()
	exp := ExportConfig{
		Filename: "gauss",
		Dir:      dir,
		AsCSV:    true,
		CSVAppend: func(rec StepRecord) string {
			return fmt.Sprintf("%f", rec.Sample.Data()[0])
		},
		CSVAppendHdr: func() string { return "x0" },
	}
	s, err := NewSampler(testFlow, Config{NumSteps: 8, Order: 2, SkipType: LogSNR}, WithExport(exp))
	require.NoError(t, err)
	r, err := s.NewRun(testNoise, nil)
	require.NoError(t, err)
	_, err = r.Execute(context.Background())
	require.NoError(t, err)

	comments, rows := readSteps(t, exp.Path(r.ID))
	require.Len(t, comments, 3)
	require.Contains(t, comments[1], r.ID.String())
	require.Len(t, rows, 9, "header and one row per step")
	require.Equal(t, append(append([]string(nil), csvHeader...), "x0"), rows[0])
	require.Equal(t, "0", rows[1][0])
	require.Equal(t, "1", rows[1][1])
	require.Equal(t, "1", rows[1][3], "first step is first order")
	require.Equal(t, "2", rows[2][3])
	require.Equal(t, "0", rows[8][2])
	require.Equal(t, "1", rows[8][3], "last step is first order")
	require.Equal(t, "8", rows[8][4])
}

func TestExportFailedRun(t *testing.T) {
	dir := t.TempDir()
	exp := ExportConfig{Filename: "failed", Dir: dir, AsCSV: true}
	s, err := NewSampler(testFlow, Config{NumSteps: 5, Order: 1, SkipType: TimeUniform}, WithExport(exp))
	require.NoError(t, err)
	r, err := s.NewRun(testNoise, nil)
	require.NoError(t, err)
	require.NoError(t, r.Step(context.Background()))
	require.NoError(t, r.Step(context.Background()))
	r.Stop()
	_, err = r.Execute(context.Background())
	require.ErrorIs(t, err, ErrStopped)

	_, rows := readSteps(t, exp.Path(r.ID))
	require.Len(t, rows, 3, "the steps taken before the failure are kept")
}

func TestExportConfig(t *testing.T) {
	require.True(t, ExportConfig{}.IsUseless())
	require.True(t, ExportConfig{Filename: "x"}.IsUseless())
	require.False(t, ExportConfig{Filename: "x", AsCSV: true}.IsUseless())
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	require.Equal(t, filepath.Join(".", "steps-x-0f8fad5b.csv"), ExportConfig{Filename: "x"}.Path(id))
	require.Equal(t, filepath.Join("out", "steps-x-0f8fad5b.csv"), ExportConfig{Filename: "x", Dir: "out"}.Path(id))
	// Unwritable destinations do not block the run.
	s, err := NewSampler(testFlow, Config{NumSteps: 3, Order: 2, SkipType: TimeUniform},
		WithExport(ExportConfig{Filename: "x", Dir: filepath.Join(t.TempDir(), "missing", "dir"), AsCSV: true}))
	require.NoError(t, err)
	_, err = s.Run(context.Background(), testNoise, nil)
	require.NoError(t, err)
}

func TestExportTimestampedBatch(t *testing.T) {
	dir := t.TempDir()
	exp := ExportConfig{Filename: "batch", Dir: dir, AsCSV: true, Timestamp: true}
	s, err := NewSampler(testFlow, Config{NumSteps: 4, Order: 2, SkipType: TimeUniform}, WithExport(exp))
	require.NoError(t, err)
	items := []BatchItem{{Noise: Vector(0.1)}, {Noise: Vector(0.2)}, {Noise: Vector(0.3)}}
	_, err = RunBatch(context.Background(), s, items, 0)
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "steps-batch-*.csv"))
	require.NoError(t, err)
	require.Len(t, files, len(items), "runs started within the same second must not share a file")
	seen := map[string]bool{}
	for _, f := range files {
		comments, rows := readSteps(t, f)
		require.Len(t, rows, 5)
		seen[comments[1]] = true
	}
	require.Len(t, seen, len(items))

	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	require.True(t, strings.HasSuffix(exp.Path(id), "-0f8fad5b.csv"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestExportHeaderError(t *testing.T) {
	require.ErrorIs(t, writeStepsHeader(failingWriter{}, uuid.New(), DefaultConfig()), os.ErrClosed)
}
