package main

import (
	"context"
	"time"

	"index-signal-lab/internal/pipeline"
)

func pipelineRunRequest(a *app, start, end time.Time, fetch, notify, chart bool) pipeline.RunRequest {
	return pipeline.RunRequest{
		Symbol:   a.cfg.Symbol,
		Start:    start,
		End:      end,
		Strategy: a.cfg.DomainStrategy(),
		Fetch:    fetch,
		Notify:   notify && a.cfg.Telegram.Enabled(),
		Chart:    chart,
	}
}

func pipelineSweepRequest(a *app, grid pipeline.Grid, start, end time.Time, charts bool) pipeline.SweepRequest {
	return pipeline.SweepRequest{
		Symbol:  a.cfg.Symbol,
		Start:   start,
		End:     end,
		Grid:    grid,
		Workers: a.cfg.Sweep.Workers,
		Charts:  charts,
	}
}

// contextWithTimeout detaches shutdown from the already-cancelled command context.
func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
