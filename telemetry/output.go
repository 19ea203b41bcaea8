package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
)

// Fixed3 is a float written to CSV with three decimals.
type Fixed3 float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (f Fixed3) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(f), 'f', 3, 64), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (f *Fixed3) UnmarshalCSV(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Fixed3(v)
	return nil
}

// GenerationRecord is one row of the generation log.
type GenerationRecord struct {
	Generation  int    `csv:"generation"`
	MeanFitness Fixed3 `csv:"mean_fitness"`
	MinFitness  Fixed3 `csv:"min_fitness"`
}

// GenerationLog appends one CSV row per generation. The file survives
// restarts: rows are appended and the header is written only once.
type GenerationLog struct {
	path          string
	file          *os.File
	headerWritten bool
}

// OpenGenerationLog opens (creating if needed) the log at path.
// Returns nil if path is empty (logging disabled).
func OpenGenerationLog(path string) (*GenerationLog, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening generation log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat generation log: %w", err)
	}
	return &GenerationLog{path: path, file: f, headerWritten: info.Size() > 0}, nil
}

// Write appends a record.
func (gl *GenerationLog) Write(rec GenerationRecord) error {
	if gl == nil {
		return nil
	}

	records := []GenerationRecord{rec}

	if !gl.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, gl.file); err != nil {
			return fmt.Errorf("writing generation log: %w", err)
		}
		gl.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, gl.file); err != nil {
			return fmt.Errorf("writing generation log: %w", err)
		}
	}
	return nil
}

// Path returns the log file path.
func (gl *GenerationLog) Path() string {
	if gl == nil {
		return ""
	}
	return gl.path
}

// Close closes the log file.
func (gl *GenerationLog) Close() error {
	if gl == nil || gl.file == nil {
		return nil
	}
	return gl.file.Close()
}

// ReadGenerationLog parses a log written by GenerationLog.
func ReadGenerationLog(path string) ([]GenerationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening generation log: %w", err)
	}
	defer f.Close()

	var records []GenerationRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("parsing generation log: %w", err)
	}
	return records, nil
}
