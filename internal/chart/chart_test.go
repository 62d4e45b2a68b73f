package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/ledger"
)

func day(i int) time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func sampleEvents() []domain.SignalEvent {
	return []domain.SignalEvent{
		{Date: day(0), Close: 98},
		{Date: day(1), Close: 100, Buy: true},
		{Date: day(2), Close: 104},
		{Date: day(3), Close: 110, Sell: true},
		{Date: day(4), Close: 107},
		{Date: day(5), Close: 105, Buy: true},
	}
}

func TestBuild_CarriesCumulativeForward(t *testing.T) {
	events := sampleEvents()
	s := Build(events, ledger.Build(events))

	if s.Len() != len(events) {
		t.Fatalf("expected %d rows, got %d", len(events), s.Len())
	}
	// Leg 1 closes on day 3 (+10), leg 2 on day 5 (110 - 105 = +5).
	want := []float64{0, 0, 0, 10, 10, 15}
	if !reflect.DeepEqual(s.CumulativeProfit, want) {
		t.Errorf("expected cumulative %v, got %v", want, s.CumulativeProfit)
	}
	if !s.Buy[1] || !s.Sell[3] || s.Buy[3] {
		t.Errorf("markers misaligned: buy=%v sell=%v", s.Buy, s.Sell)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(9, 130, -145); got != "cci_9_buy_130_sell_-145" {
		t.Errorf("unexpected file name %q", got)
	}
	if got := FileName(5, 102.5, -100); got != "cci_5_buy_102.5_sell_-100" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	events := sampleEvents()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Build(events, ledger.Build(events))); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header + 6 rows, got %d", len(lines))
	}
	if lines[0] != "date,close,buy,sell,cumulative_profit" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[4] != "2024-05-04,110,false,true,10" {
		t.Errorf("unexpected row %q", lines[4])
	}
}

func TestWriteArrow_Readable(t *testing.T) {
	events := sampleEvents()
	var buf bytes.Buffer
	if err := WriteArrow(&buf, Build(events, ledger.Build(events))); err != nil {
		t.Fatalf("WriteArrow failed: %v", err)
	}

	reader, err := ipc.NewReader(&buf)
	if err != nil {
		t.Fatalf("open ipc stream: %v", err)
	}
	defer reader.Release()

	if !reader.Schema().Equal(Schema) {
		t.Errorf("unexpected schema %s", reader.Schema())
	}
	if !reader.Next() {
		t.Fatalf("expected one record: %v", reader.Err())
	}
	rec := reader.Record()
	if rec.NumRows() != 6 {
		t.Fatalf("expected 6 rows, got %d", rec.NumRows())
	}

	dates := rec.Column(0).(*array.Date32)
	if dates.Value(3) != arrow.Date32FromTime(day(3)) {
		t.Errorf("unexpected date %v", dates.Value(3).ToTime())
	}
	cum := rec.Column(4).(*array.Float64)
	if cum.Value(5) != 15 {
		t.Errorf("expected final cumulative 15, got %f", cum.Value(5))
	}
	if !rec.Column(2).(*array.Boolean).Value(1) {
		t.Error("expected buy marker on row 1")
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	s := Build(sampleEvents(), nil)

	path, err := WriteFile(dir, FileName(9, 130, -145), FormatCSV, s)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if filepath.Base(path) != "cci_9_buy_130_sell_-145.csv" {
		t.Errorf("unexpected path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}

	if _, err := WriteFile(dir, "x", Format("png"), s); err == nil {
		t.Error("expected error for unknown format")
	}
}
