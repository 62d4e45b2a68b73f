// Package influx archives daily bars in an InfluxDB bucket and serves them back as a bar source.
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/normalization"
)

// Measurement is the InfluxDB measurement holding daily bars.
const Measurement = "index_bars"

// BarArchive writes and reads daily bars tagged by symbol.
type BarArchive struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
	logger *zap.Logger
}

// NewBarArchive connects to InfluxDB and checks the server is reachable.
func NewBarArchive(ctx context.Context, url, token, org, bucket string, logger *zap.Logger) (*BarArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := influxdb2.NewClient(url, token)

	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping influxdb: %w", err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("ping influxdb: server at %s not ready", url)
	}

	return &BarArchive{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
		query:  client.QueryAPI(org),
		bucket: bucket,
		logger: logger,
	}, nil
}

// Close releases the client.
func (a *BarArchive) Close() {
	a.client.Close()
}

// WriteBars writes bars as points tagged with symbol. Existing points with the
// same timestamp are overwritten by InfluxDB.
func (a *BarArchive) WriteBars(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	symbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(bars))
	for _, b := range bars {
		points = append(points, barPoint(symbol, b))
	}

	if err := a.write.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write bars: %w", err)
	}
	a.logger.Debug("archived bars", zap.String("symbol", symbol), zap.Int("count", len(points)))
	return nil
}

// Fetch reads bars of symbol within [start, end]. A zero end reads up to now.
func (a *BarArchive) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	symbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	result, err := a.query.Query(ctx, fluxQuery(a.bucket, symbol, start, end))
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	defer result.Close()

	var bars []domain.PriceBar
	for result.Next() {
		record := result.Record()
		bar := domain.PriceBar{Date: domain.Day(record.Time())}
		if v, ok := record.ValueByKey("open").(float64); ok {
			bar.Open = v
		}
		if v, ok := record.ValueByKey("high").(float64); ok {
			bar.High = v
		}
		if v, ok := record.ValueByKey("low").(float64); ok {
			bar.Low = v
		}
		if v, ok := record.ValueByKey("close").(float64); ok {
			bar.Close = v
		}
		if v, ok := record.ValueByKey("volume").(int64); ok {
			bar.Volume = v
		}
		bars = append(bars, bar)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	return normalization.NormalizeBars(bars), nil
}

func barPoint(symbol string, b domain.PriceBar) *write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"symbol": symbol},
		map[string]interface{}{
			"open":   b.Open,
			"high":   b.High,
			"low":    b.Low,
			"close":  b.Close,
			"volume": b.Volume,
		},
		domain.Day(b.Date),
	)
}

// fluxQuery builds the pivoted bar query. symbol must already be validated.
func fluxQuery(bucket, symbol string, start, end time.Time) string {
	stop := "now()"
	if !end.IsZero() {
		stop = domain.Day(end).AddDate(0, 0, 1).Format(time.RFC3339)
	}
	return fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == %q)
		  |> filter(fn: (r) => r.symbol == %q)
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, bucket, domain.Day(start).Format(time.RFC3339), stop, Measurement, symbol)
}
