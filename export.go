package fmsolvers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExportConfig configures the exporting of sampling trajectories.
type ExportConfig struct {
	Filename     string
	Dir          string // defaults to the working directory
	AsCSV        bool
	Timestamp    bool
	CSVAppend    func(rec StepRecord) string // Custom export (do not include leading comma)
	CSVAppendHdr func() string               // Header for the custom export
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV || c.Filename == ""
}

// Path returns the CSV file written for the given run.
func (c ExportConfig) Path(run uuid.UUID) string {
	dir := c.Dir
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("steps-%s-%s", c.Filename, run.String()[:8])
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("steps-%s-%d-%02d-%02dT%02d.%02d.%02d-%s", c.Filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), run.String()[:8])
	}
	return filepath.Join(dir, name+".csv")
}

// writeStepsHeader writes the comment lines that precede the CSV header.
func writeStepsHeader(w io.Writer, run uuid.UUID, solver Config) error {
	_, err := fmt.Fprintf(w, "# Creation date (UTC): %s\n# Run: %s\n# Solver: %s\n", time.Now().UTC(), run, solver)
	return err
}

var csvHeader = []string{"step", "from", "to", "order", "nfe", "velocityNorm", "denoisedNorm", "sampleNorm", "elapsedMs"}

// StreamSteps writes the records of one run to a CSV file until recs is closed.
// The channel is always drained, even when the file cannot be written.
func StreamSteps(conf ExportConfig, run uuid.UUID, solver Config, recs <-chan StepRecord) (err error) {
	defer func() {
		for range recs {
		}
	}()
	f, err := os.Create(conf.Path(run))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := writeStepsHeader(f, run, solver); err != nil {
		return err
	}
	hdr := append([]string(nil), csvHeader...)
	if conf.CSVAppendHdr != nil {
		// Append the headers for the appended columns.
		hdr = append(hdr, strings.Split(conf.CSVAppendHdr(), ",")...)
	}
	w := csv.NewWriter(f)
	if err := w.Write(hdr); err != nil {
		return err
	}
	for rec := range recs {
		row := []string{
			strconv.Itoa(rec.Index),
			strconv.FormatFloat(rec.From, 'g', -1, 64),
			strconv.FormatFloat(rec.To, 'g', -1, 64),
			strconv.Itoa(rec.Order),
			strconv.Itoa(rec.Evaluations),
			strconv.FormatFloat(rec.Velocity, 'g', 10, 64),
			strconv.FormatFloat(rec.Denoised, 'g', 10, 64),
			strconv.FormatFloat(rec.Sample.Norm(), 'g', 10, 64),
			strconv.FormatFloat(float64(rec.Elapsed)/float64(time.Millisecond), 'f', 3, 64),
		}
		if conf.CSVAppend != nil {
			row = append(row, strings.Split(conf.CSVAppend(rec), ",")...)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
