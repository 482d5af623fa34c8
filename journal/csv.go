package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV writes closes and equity snapshots to two CSV files, flushing after
// every record so a crashed session still leaves usable files.
type CSV struct {
	closes *csv.Writer
	equity *csv.Writer
	cf, ef *os.File
}

func NewCSV(closesPath, equityPath string) (*CSV, error) {
	cf, err := os.Create(closesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		cf.Close()
		return nil, err
	}

	cw := csv.NewWriter(cf)
	ew := csv.NewWriter(ef)

	if err := cw.Write([]string{"position_id", "side", "lots", "open_price", "close_price", "open_time", "close_time", "realized_pl", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "balance", "equity", "used_margin", "free_margin", "margin_level"}); err != nil {
		return nil, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{closes: cw, equity: ew, cf: cf, ef: ef}, nil
}

func (j *CSV) RecordClose(r CloseRecord) error {
	if err := j.closes.Write([]string{
		r.PositionID,
		r.Side,
		f(r.Lots),
		f(r.OpenPrice),
		f(r.ClosePrice),
		r.OpenTime.Format(time.RFC3339),
		r.CloseTime.Format(time.RFC3339),
		f(r.RealizedPL),
		r.Reason,
	}); err != nil {
		return err
	}
	j.closes.Flush()
	return j.closes.Error()
}

func (j *CSV) RecordEquity(r EquityRecord) error {
	if err := j.equity.Write([]string{
		r.Time.Format(time.RFC3339),
		f(r.Balance),
		f(r.Equity),
		f(r.UsedMargin),
		f(r.FreeMargin),
		f(r.MarginLevel),
	}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.closes.Flush()
	if err := j.closes.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.cf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
