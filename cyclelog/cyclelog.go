// package cyclelog appends completed cycles to a CSV file, writing the
// header exactly once. A write failure is reported to the caller as a
// warning-level event; it is never fatal and never blocks the control loop
// by itself (the supervisor decides to merely log and continue).
package cyclelog

import (
	"encoding/csv"
	"fmt"
	"os"

	"toteguard.dev/cycle"
)

const header = "start_iso,end_iso,duration_s,mean_current_a,reason"

// Writer appends CycleLogRecord rows to a CSV file, opened per-write.
type Writer struct {
	path string
}

// New returns a Writer targeting path. The header is written immediately if
// the file does not yet exist.
func New(path string) (*Writer, error) {
	w := &Writer{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.writeHeader(); err != nil {
			return nil, fmt.Errorf("cyclelog: init %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("cyclelog: stat %s: %w", path, err)
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, header)
	return err
}

// Append writes one row for rec. Timestamps are local-time ISO-8601 at
// second precision; duration and mean current are formatted to three
// decimal places.
func (w *Writer) Append(rec cycle.Record) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cyclelog: open %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	row := []string{
		rec.Start.Local().Format("2006-01-02T15:04:05"),
		rec.End.Local().Format("2006-01-02T15:04:05"),
		fmt.Sprintf("%.3f", rec.End.Sub(rec.Start).Seconds()),
		fmt.Sprintf("%.3f", rec.MeanCurrentA),
		rec.Reason.String(),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("cyclelog: write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
