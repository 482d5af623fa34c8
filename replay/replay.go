// Package replay loads recorded tick datasets so the terminal can be
// driven by real price history instead of the random walk. Datasets are
// CSV (time,bid,ask), optionally xz-compressed or bundled in a zip.
package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"

	"github.com/rustyeddy/fxterm/market"
)

// Load reads ticks from a dataset file. The format is chosen from the
// extension: ".zip" extracts the bundle and concatenates the contained
// CSV files in name order, ".xz" decompresses a single CSV stream, and
// anything else is read as plain CSV.
func Load(path string) ([]market.Tick, error) {
	switch {
	case strings.HasSuffix(path, ".zip"):
		return loadZip(path)
	case strings.HasSuffix(path, ".xz"):
		return loadXZ(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticks: %w", err)
	}
	defer f.Close()

	return parse(f)
}

func loadXZ(path string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticks: %w", err)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	return parse(r)
}

func loadZip(path string) ([]market.Tick, error) {
	dir, err := os.MkdirTemp("", "fxterm-replay-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := unzip.Extract(path, dir); err != nil {
		return nil, fmt.Errorf("extract bundle: %w", err)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".csv") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("bundle %s contains no csv files", path)
	}
	sort.Strings(files)

	var ticks []market.Tick
	for _, f := range files {
		part, err := loadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		ticks = append(ticks, part...)
	}
	return ticks, nil
}

// parse reads time,bid,ask rows. A header row is skipped if present.
func parse(r io.Reader) ([]market.Tick, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var ticks []market.Tick
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want time,bid,ask, got %d fields", line, len(rec))
		}
		if line == 1 && strings.EqualFold(rec[0], "time") {
			continue
		}

		tm, err := parseTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time: %w", line, err)
		}
		bid, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad bid: %w", line, err)
		}
		ask, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad ask: %w", line, err)
		}
		if ask < bid {
			return nil, fmt.Errorf("line %d: ask %.5f below bid %.5f", line, ask, bid)
		}

		ticks = append(ticks, market.Tick{Time: tm, Bid: bid, Ask: ask})
	}

	if len(ticks) == 0 {
		return nil, fmt.Errorf("no ticks in dataset")
	}
	return ticks, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

// Play feeds the ticks to fn in order, pacing by the given fixed delay
// (zero replays as fast as possible), until the context is cancelled.
func Play(ctx context.Context, ticks []market.Tick, delay time.Duration, fn func(market.Tick) error) error {
	for _, t := range ticks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(t); err != nil {
			return err
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}
