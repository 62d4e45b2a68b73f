package chart

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// Schema is the Arrow schema of an exported series.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "date", Type: arrow.FixedWidthTypes.Date32},
	{Name: "close", Type: arrow.PrimitiveTypes.Float64},
	{Name: "buy", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "sell", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "cumulative_profit", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// WriteArrow writes the series as a single-batch Arrow IPC stream.
func WriteArrow(w io.Writer, s *Series) error {
	pool := memory.NewGoAllocator()

	dates := make([]arrow.Date32, s.Len())
	for i, d := range s.Dates {
		dates[i] = arrow.Date32FromTime(d)
	}

	dateBuilder := array.NewDate32Builder(pool)
	defer dateBuilder.Release()
	dateBuilder.AppendValues(dates, nil)
	dateArray := dateBuilder.NewArray()
	defer dateArray.Release()

	closeBuilder := array.NewFloat64Builder(pool)
	defer closeBuilder.Release()
	closeBuilder.AppendValues(s.Close, nil)
	closeArray := closeBuilder.NewArray()
	defer closeArray.Release()

	buyBuilder := array.NewBooleanBuilder(pool)
	defer buyBuilder.Release()
	buyBuilder.AppendValues(s.Buy, nil)
	buyArray := buyBuilder.NewArray()
	defer buyArray.Release()

	sellBuilder := array.NewBooleanBuilder(pool)
	defer sellBuilder.Release()
	sellBuilder.AppendValues(s.Sell, nil)
	sellArray := sellBuilder.NewArray()
	defer sellArray.Release()

	cumBuilder := array.NewFloat64Builder(pool)
	defer cumBuilder.Release()
	cumBuilder.AppendValues(s.CumulativeProfit, nil)
	cumArray := cumBuilder.NewArray()
	defer cumArray.Release()

	record := array.NewRecord(Schema, []arrow.Array{
		dateArray, closeArray, buyArray, sellArray, cumArray,
	}, int64(s.Len()))
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(Schema), ipc.WithAllocator(pool))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return nil
}
