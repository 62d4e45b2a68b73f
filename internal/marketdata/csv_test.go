package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"

	"index-signal-lab/internal/domain"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-01-03,352,356,351,"1,354.5",2000
2024-01-02,350,355,349,"1,350",1000
2024-01-04,354,357,350,355,
`

func TestReadBars_UTF8(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV), EncodingUTF8)
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if !bars[0].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected sorted dates, got first %s", bars[0].Date)
	}
	if bars[0].Close != 1350 || bars[1].Close != 1354.5 {
		t.Errorf("expected thousands separators stripped, got %f/%f", bars[0].Close, bars[1].Close)
	}
	if bars[0].Change != 0 {
		t.Errorf("expected first change 0, got %f", bars[0].Change)
	}
	if bars[2].Volume != 0 {
		t.Errorf("expected empty volume as 0, got %d", bars[2].Volume)
	}
}

func TestReadBars_UTF16MatchesUTF8(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(sampleCSV)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want, err := ReadBars(strings.NewReader(sampleCSV), EncodingUTF8)
	if err != nil {
		t.Fatalf("ReadBars utf-8 failed: %v", err)
	}
	for _, enc := range []string{EncodingUTF16, EncodingAuto} {
		got, err := ReadBars(strings.NewReader(encoded), enc)
		if err != nil {
			t.Fatalf("ReadBars(%q) failed: %v", enc, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("encoding %q: decoded bars differ from utf-8", enc)
		}
	}
}

func TestReadBars_EUCKR(t *testing.T) {
	content := "date,name,open,high,low,close\n2024-01-02,코스피200,350,355,349,354\n"
	encoded, err := korean.EUCKR.NewEncoder().String(content)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	bars, err := ReadBars(strings.NewReader(encoded), EncodingEUCKR)
	if err != nil {
		t.Fatalf("ReadBars failed: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 354 {
		t.Errorf("unexpected bars %+v", bars)
	}
}

func TestReadBars_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing close", "date,open,high,low\n2024-01-02,1,1,1\n"},
		{"bad date", "date,open,high,low,close\nyesterday,1,1,1,1\n"},
		{"bad price", "date,open,high,low,close\n2024-01-02,1,x,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadBars(strings.NewReader(tt.content), EncodingUTF8); !errors.Is(err, ErrBadCSV) {
				t.Errorf("expected ErrBadCSV, got %v", err)
			}
		})
	}

	if _, err := ReadBars(strings.NewReader(sampleCSV), "latin-9"); err == nil {
		t.Error("expected error for unsupported encoding")
	}
}

func TestCSVSource_FetchRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks200.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	src := NewCSVSource(path, "")
	bars, err := src.Fetch(context.Background(), "KS200",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Change != 0 {
		t.Errorf("expected change reset at range start, got %f", bars[0].Change)
	}
}

func TestStaticSource(t *testing.T) {
	day := func(i int) time.Time { return time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC) }
	src := NewStaticSource(map[string][]domain.PriceBar{
		"KS200": {{Date: day(1), Close: 110}, {Date: day(0), Close: 100}, {Date: day(2), Close: 99}},
	})

	bars, err := src.Fetch(context.Background(), "KS200", day(1), day(2))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 110 || bars[0].Change != 0 {
		t.Errorf("unexpected bars %+v", bars)
	}

	if _, err := src.Fetch(context.Background(), "SPX", time.Time{}, time.Time{}); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
