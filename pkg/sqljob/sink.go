package sqljob

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sqlrunner/pkg/apperrors"
)

// ResultHandle references a persisted result set: the retained in-memory
// table plus the paths of both on-disk artifacts.
type ResultHandle struct {
	Table      *Table
	CSVPath    string
	BinaryPath string
}

// Sink persists completed result sets under a base directory, one CSV and
// one gob artifact per job. File names embed the job id and submission
// timestamp, so artifacts never collide within a process and stay
// distinguishable across restarts. Files are written once and never mutated.
type Sink struct {
	dir    string
	logger *slog.Logger
}

// NewSink creates a sink writing under dir. The directory is created on
// first persist.
func NewSink(dir string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{dir: dir, logger: logger}
}

// Persist writes the tabular artifact, then the binary artifact, and returns
// a handle referencing both. When maxRows > 0 the retained table (and the
// binary artifact) is truncated to maxRows; the CSV always holds all rows.
// Writes are not atomic: a crash mid-write can leave a truncated file.
func (s *Sink) Persist(jobID int64, submittedAt time.Time, tbl *Table, maxRows int) (*ResultHandle, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperrors.Persistence("sink.mkdir", err)
	}

	stamp := submittedAt.Format("060102_150405")
	csvPath := filepath.Join(s.dir, fmt.Sprintf("job_%d_%s.csv", jobID, stamp))
	binaryPath := filepath.Join(s.dir, fmt.Sprintf("job_%d_%s.gob", jobID, stamp))

	if err := writeCSV(csvPath, tbl); err != nil {
		return nil, apperrors.Persistence("sink.csv", err)
	}

	kept := tbl
	if maxRows > 0 && len(tbl.Rows) > maxRows {
		kept = &Table{Columns: tbl.Columns, Rows: tbl.Rows[:maxRows], Truncated: true}
		s.logger.Info("Result table truncated", "jobId", jobID, "kept", maxRows, "total", len(tbl.Rows))
	}

	if err := writeBinary(binaryPath, kept); err != nil {
		return nil, apperrors.Persistence("sink.binary", err)
	}

	s.logger.Info("Results persisted",
		"jobId", jobID,
		"rows", len(tbl.Rows),
		"csv", csvPath,
		"binary", binaryPath,
	)

	return &ResultHandle{Table: kept, CSVPath: csvPath, BinaryPath: binaryPath}, nil
}

// LoadTable reads a binary artifact back into memory, so results remain
// accessible after the in-memory handle is gone.
func LoadTable(binaryPath string) (*Table, error) {
	f, err := os.Open(binaryPath)
	if err != nil {
		return nil, apperrors.Persistence("sink.load", err)
	}
	defer f.Close() //nolint:errcheck

	var tbl Table
	if err := gob.NewDecoder(f).Decode(&tbl); err != nil {
		return nil, apperrors.Persistence("sink.load", err)
	}
	return &tbl, nil
}

func writeCSV(path string, tbl *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(tbl.Columns); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	record := make([]string, len(tbl.Columns))
	for _, row := range tbl.Rows {
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

func writeBinary(path string, tbl *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(tbl); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// formatValue renders a driver value for the tabular artifact.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
