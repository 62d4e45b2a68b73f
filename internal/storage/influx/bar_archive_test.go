package influx

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"index-signal-lab/internal/domain"
)

const (
	testOrg    = "signallab"
	testBucket = "bars"
	testToken  = "signallab-test-token"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestFluxQuery(t *testing.T) {
	q := fluxQuery("bars", "KS200", day(0), day(9))

	assert.Contains(t, q, `from(bucket: "bars")`)
	assert.Contains(t, q, "range(start: 2024-01-02T00:00:00Z, stop: 2024-01-12T00:00:00Z)")
	assert.Contains(t, q, `r.symbol == "KS200"`)
	assert.Contains(t, q, `r._measurement == "index_bars"`)

	open := fluxQuery("bars", "KS200", day(0), time.Time{})
	assert.Contains(t, open, "stop: now()")
}

func TestBarPoint(t *testing.T) {
	p := barPoint("KS200", domain.PriceBar{Date: day(0).Add(9 * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 42})

	assert.Equal(t, Measurement, p.Name())
	assert.True(t, p.Time().Equal(day(0)))
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "KS200", p.TagList()[0].Value)
	assert.Len(t, p.FieldList(), 5)
}

func setupArchive(t *testing.T) (*BarArchive, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "influxdb:2.7-alpine",
			ExposedPorts: []string{"8086/tcp"},
			Env: map[string]string{
				"DOCKER_INFLUXDB_INIT_MODE":        "setup",
				"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
				"DOCKER_INFLUXDB_INIT_PASSWORD":    "admin-password",
				"DOCKER_INFLUXDB_INIT_ORG":         testOrg,
				"DOCKER_INFLUXDB_INIT_BUCKET":      testBucket,
				"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": testToken,
			},
			WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8086")
	require.NoError(t, err)

	url := fmt.Sprintf("http://%s:%s", host, port.Port())

	// Setup mode finishes after /health turns green; retry until the token works.
	var archive *BarArchive
	require.Eventually(t, func() bool {
		a, err := NewBarArchive(ctx, url, testToken, testOrg, testBucket, nil)
		if err != nil {
			return false
		}
		if _, err := a.Fetch(ctx, "PROBE", day(0), day(0)); err != nil {
			a.Close()
			return false
		}
		archive = a
		return true
	}, 30*time.Second, 500*time.Millisecond)

	return archive, func() {
		archive.Close()
		_ = container.Terminate(ctx)
	}
}

func TestBarArchive_WriteAndFetch(t *testing.T) {
	archive, cleanup := setupArchive(t)
	defer cleanup()

	ctx := context.Background()
	bars := []domain.PriceBar{
		{Date: day(0), Open: 100, High: 101, Low: 99, Close: 100, Volume: 10},
		{Date: day(1), Open: 100, High: 111, Low: 99, Close: 110, Volume: 20},
		{Date: day(2), Open: 110, High: 112, Low: 98, Close: 99, Volume: 30},
	}
	require.NoError(t, archive.WriteBars(ctx, "ks200", bars))

	got, err := archive.Fetch(ctx, "KS200", day(0), day(1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(day(0)))
	assert.Equal(t, 110.0, got[1].Close)
	assert.Equal(t, int64(20), got[1].Volume)
	assert.InDelta(t, 0.1, got[1].Change, 1e-12)
}

func TestBarArchive_RejectsUnsafeSymbol(t *testing.T) {
	archive := &BarArchive{bucket: testBucket}

	_, err := archive.Fetch(context.Background(), `x") |> drop(columns: ["_value"]) //`, day(0), day(1))
	require.ErrorIs(t, err, domain.ErrInvalidSymbol)
	assert.False(t, strings.Contains(fmt.Sprint(err), "query bars"))
}
