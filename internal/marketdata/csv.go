package marketdata

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/normalization"
)

// Encoding names accepted by CSVSource.
const (
	EncodingAuto  = ""
	EncodingUTF8  = "utf-8"
	EncodingUTF16 = "utf-16"
	EncodingEUCKR = "euc-kr"
)

// ErrBadCSV is returned for files missing required columns or holding unparsable values.
var ErrBadCSV = errors.New("malformed csv")

var requiredColumns = []string{"date", "open", "high", "low", "close"}

var dateLayouts = []string{domain.DateLayout, "2006/01/02", "20060102", "2006.01.02"}

// CSVSource reads bars from a CSV export with a header of
// date,open,high,low,close[,volume][,change]. Thousands separators are accepted.
type CSVSource struct {
	path     string
	encoding string
}

// NewCSVSource creates a source over the file at path. An empty encoding
// detects UTF-16 from a byte-order mark and otherwise reads UTF-8.
func NewCSVSource(path, encoding string) *CSVSource {
	return &CSVSource{path: path, encoding: strings.ToLower(encoding)}
}

// Fetch reads the file and returns bars within [start, end]. The symbol is not
// checked against the file contents.
func (s *CSVSource) Fetch(ctx context.Context, _ string, start, end time.Time) ([]domain.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	bars, err := ReadBars(f, s.encoding)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	bars = normalization.FilterRange(bars, start, end)
	normalization.ComputeChanges(bars)
	return bars, nil
}

// ReadBars decodes r with the named encoding and parses it into a normalized series.
func ReadBars(r io.Reader, enc string) ([]domain.PriceBar, error) {
	decoded, err := decodingReader(r, enc)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrBadCSV, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[name] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadCSV, c)
		}
	}

	var bars []domain.PriceBar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCSV, line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		bar, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCSV, line, err)
		}
		bars = append(bars, bar)
	}

	return normalization.NormalizeBars(bars), nil
}

func parseRecord(rec []string, cols map[string]int) (domain.PriceBar, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var bar domain.PriceBar
	date, err := parseDate(field("date"))
	if err != nil {
		return bar, err
	}
	bar.Date = date

	prices := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
	}
	for _, p := range prices {
		v, err := parseNumber(field(p.name))
		if err != nil {
			return bar, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = v
	}

	if raw := field("volume"); raw != "" {
		v, err := parseNumber(raw)
		if err != nil {
			return bar, fmt.Errorf("volume: %w", err)
		}
		bar.Volume = int64(v)
	}
	return bar, nil
}

func parseDate(s string) (time.Time, error) {
	// Exports with a time-of-day column keep only the date part.
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func decodingReader(r io.Reader, enc string) (io.Reader, error) {
	var dec *encoding.Decoder
	switch enc {
	case EncodingUTF8:
		return r, nil
	case EncodingUTF16:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case EncodingEUCKR:
		dec = korean.EUCKR.NewDecoder()
	case EncodingAuto:
		br := bufio.NewReader(r)
		bom, _ := br.Peek(2)
		if len(bom) == 2 && ((bom[0] == 0xFF && bom[1] == 0xFE) || (bom[0] == 0xFE && bom[1] == 0xFF)) {
			return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()), nil
		}
		return br, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
	return transform.NewReader(r, dec), nil
}

var _ Source = (*CSVSource)(nil)
