package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
)

// printJSON writes v as indented JSON to stdout.
func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// table returns a writer that aligns tab-separated columns. Call Flush when done.
func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
}

// unixTime formats a Unix timestamp, or "-" for zero.
func unixTime(sec int64) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// openInput opens path for reading; "-" is stdin.
func (a *App) openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(a.stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, validationErr("open %s: %w", path, err)
	}
	return f, nil
}

// writeOutput copies r to path, or to stdout when path is "-" or empty.
func (a *App) writeOutput(path string, r io.Reader) (int64, error) {
	if path == "" || path == "-" {
		return io.Copy(a.stdout, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, validationErr("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}
