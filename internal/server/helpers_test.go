package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/tkempf/shoppulse/internal/config"
	"github.com/tkempf/shoppulse/internal/domain"
	"github.com/tkempf/shoppulse/internal/hub"
)

const (
	eventuallyTimeout = 2 * time.Second
	eventuallyTick    = 10 * time.Millisecond
)

type fakeService struct {
	products        func(ctx context.Context) ([]domain.Product, error)
	history         func(ctx context.Context) ([]domain.PurchaseRecord, error)
	stats           func(ctx context.Context) (*domain.ShopStats, error)
	dashboard       func(ctx context.Context) (*domain.Dashboard, error)
	sensorStats     func(ctx context.Context) ([]domain.SensorStats, error)
	alerts          func(ctx context.Context, limit int) ([]domain.Alert, error)
	registerUser    func(ctx context.Context, username string) (*domain.User, error)
	executePurchase func(ctx context.Context, userID, productID int64, quantity int) (*domain.Receipt, error)
	clearHistory    func(ctx context.Context) error
	recordAlert     func(ctx context.Context, alert domain.Alert) (*domain.Alert, error)
}

func (f *fakeService) Products(ctx context.Context) ([]domain.Product, error) {
	if f.products == nil {
		return nil, nil
	}
	return f.products(ctx)
}

func (f *fakeService) History(ctx context.Context) ([]domain.PurchaseRecord, error) {
	if f.history == nil {
		return nil, nil
	}
	return f.history(ctx)
}

func (f *fakeService) Stats(ctx context.Context) (*domain.ShopStats, error) {
	if f.stats == nil {
		return &domain.ShopStats{}, nil
	}
	return f.stats(ctx)
}

func (f *fakeService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	if f.dashboard == nil {
		return &domain.Dashboard{}, nil
	}
	return f.dashboard(ctx)
}

func (f *fakeService) SensorStats(ctx context.Context) ([]domain.SensorStats, error) {
	if f.sensorStats == nil {
		return nil, nil
	}
	return f.sensorStats(ctx)
}

func (f *fakeService) Alerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if f.alerts == nil {
		return nil, nil
	}
	return f.alerts(ctx, limit)
}

func (f *fakeService) RegisterUser(ctx context.Context, username string) (*domain.User, error) {
	if f.registerUser == nil {
		return &domain.User{ID: 1, Username: username}, nil
	}
	return f.registerUser(ctx, username)
}

func (f *fakeService) ExecutePurchase(ctx context.Context, userID, productID int64, quantity int) (*domain.Receipt, error) {
	if f.executePurchase == nil {
		return &domain.Receipt{}, nil
	}
	return f.executePurchase(ctx, userID, productID, quantity)
}

func (f *fakeService) ClearHistory(ctx context.Context) error {
	if f.clearHistory == nil {
		return nil
	}
	return f.clearHistory(ctx)
}

func (f *fakeService) RecordAlert(ctx context.Context, alert domain.Alert) (*domain.Alert, error) {
	if f.recordAlert == nil {
		alert.ID = 1
		return &alert, nil
	}
	return f.recordAlert(ctx, alert)
}

type fakeSimulator struct {
	mu      sync.Mutex
	running bool
}

func (f *fakeSimulator) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeSimulator) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return false
	}
	f.running = false
	return true
}

func (f *fakeSimulator) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakePostgres struct {
	ping func(ctx context.Context) error
}

func (f *fakePostgres) Ping(ctx context.Context) error {
	if f.ping == nil {
		return nil
	}
	return f.ping(ctx)
}

func testServerConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		MaxClients:      100,
		MaxClientsPerIP: 100,
		ConnRate:        1000,
		ConnBurst:       1000,
	}
}

type serverFixture struct {
	srv       *Server
	hub       *hub.Hub
	service   *fakeService
	simulator *fakeSimulator
	postgres  *fakePostgres
	http      *httptest.Server
}

func newServerFixture(t *testing.T, service *fakeService) *serverFixture {
	t.Helper()

	if service == nil {
		service = &fakeService{}
	}
	simulator := &fakeSimulator{}
	postgres := &fakePostgres{}

	h := hub.New(clockwork.NewRealClock())
	t.Cleanup(h.Stop)

	srv := NewServer(testServerConfig(), service, h, simulator, postgres, clockwork.NewRealClock())

	httpSrv := httptest.NewServer(srv.echo)
	t.Cleanup(httpSrv.Close)

	return &serverFixture{
		srv:       srv,
		hub:       h,
		service:   service,
		simulator: simulator,
		postgres:  postgres,
		http:      httpSrv,
	}
}

// dialWS opens a WebSocket client against the fixture's /ws endpoint.
func (f *serverFixture) dialWS(t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// readEvent reads the next event from the connection with a deadline.
func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event domain.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func sendMessage(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}
