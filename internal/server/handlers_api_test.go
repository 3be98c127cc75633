package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkempf/shoppulse/internal/domain"
)

func get(t *testing.T, fixture *serverFixture, path string) (int, string) {
	t.Helper()

	resp, err := http.Get(fixture.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGetProducts_OK(t *testing.T) {
	service := &fakeService{
		products: func(ctx context.Context) ([]domain.Product, error) {
			return []domain.Product{{ID: 1, Name: "Coffee", Icon: "☕", Price: 3.50, Stock: 100}}, nil
		},
	}
	fixture := newServerFixture(t, service)

	status, body := get(t, fixture, "/api/products")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"Coffee"`)
}

func TestGetProducts_StoreFailureReturnsEmptyArray(t *testing.T) {
	service := &fakeService{
		products: func(ctx context.Context) ([]domain.Product, error) {
			return nil, assert.AnError
		},
	}
	fixture := newServerFixture(t, service)

	status, body := get(t, fixture, "/api/products")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "[]", strings.TrimSpace(body))
}

func TestGetHistory_EmptyIsArrayNotNull(t *testing.T) {
	fixture := newServerFixture(t, nil)

	status, body := get(t, fixture, "/api/history")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(body))
}

func TestGetAlerts_PassesLimit(t *testing.T) {
	var gotLimit int
	service := &fakeService{
		alerts: func(ctx context.Context, limit int) ([]domain.Alert, error) {
			gotLimit = limit
			return []domain.Alert{{ID: 1, SensorID: "s1", Level: "critical", Message: "hot"}}, nil
		},
	}
	fixture := newServerFixture(t, service)

	status, _ := get(t, fixture, "/api/alerts?limit=7")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 7, gotLimit)
}

func TestGetDashboard_StoreFailureReturnsZeroShape(t *testing.T) {
	service := &fakeService{
		dashboard: func(ctx context.Context) (*domain.Dashboard, error) {
			return nil, assert.AnError
		},
	}
	fixture := newServerFixture(t, service)

	status, body := get(t, fixture, "/api/dashboard")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, `"total_alerts":0`)
}

func TestGetStats_PerSensorBreakdown(t *testing.T) {
	service := &fakeService{
		sensorStats: func(ctx context.Context) ([]domain.SensorStats, error) {
			return []domain.SensorStats{{SensorID: "sensor-1", Total: 3, Critical: 1}}, nil
		},
	}
	fixture := newServerFixture(t, service)

	status, body := get(t, fixture, "/api/stats")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"sensor-1"`)
}

func TestPostEvent_RecordsAlert(t *testing.T) {
	var recorded domain.Alert
	service := &fakeService{
		recordAlert: func(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
			recorded = alert
			alert.ID = 42
			return &alert, nil
		},
	}
	fixture := newServerFixture(t, service)

	resp, err := http.Post(
		fixture.http.URL+"/api/events",
		"application/json",
		strings.NewReader(`{"sensor_id":"sensor-1","level":"critical","message":"too hot","value":104.2}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"success":true`)
	assert.Equal(t, "sensor-1", recorded.SensorID)
	assert.Equal(t, "critical", recorded.Level)
	assert.InDelta(t, 104.2, recorded.Value, 0.001)
}

func TestPostEvent_ValidationErrorMapsTo400(t *testing.T) {
	service := &fakeService{
		recordAlert: func(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
			return nil, domain.ErrInvalidAlert
		},
	}
	fixture := newServerFixture(t, service)

	resp, err := http.Post(
		fixture.http.URL+"/api/events",
		"application/json",
		strings.NewReader(`{"sensor_id":""}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVersion_ReturnsBuildInfo(t *testing.T) {
	fixture := newServerFixture(t, nil)

	status, body := get(t, fixture, "/version")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"go_version"`)
}
