//go:build integration

package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/HatiCode/ridewise/pkg/auth"
	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/models"
	"github.com/HatiCode/ridewise/pkg/prediction"
	"github.com/HatiCode/ridewise/pkg/storage"
)

// startBYOM runs a tiny model server in a container that answers every POST
// with {"result": {"rentals": value}}.
func startBYOM(t *testing.T, ctx context.Context, value float64) string {
	t.Helper()

	script := fmt.Sprintf(`
import http.server
import socketserver

class ModelHandler(http.server.BaseHTTPRequestHandler):
    def do_POST(self):
        self.rfile.read(int(self.headers.get('Content-Length', 0)))
        self.send_response(200)
        self.send_header('Content-type', 'application/json')
        self.end_headers()
        self.wfile.write(b'{"result": {"rentals": %v}}')

    def log_message(self, format, *args):
        pass

with socketserver.TCPServer(("", 8000), ModelHandler) as httpd:
    httpd.serve_forever()
`, value)

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "python:3.11-alpine",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"python", "-c", script},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start model container: %v", err)
	}
	t.Cleanup(func() { c.Terminate(context.Background()) })

	endpoint, err := c.PortEndpoint(ctx, "8000/tcp", "http")
	if err != nil {
		t.Fatalf("failed to get model endpoint: %v", err)
	}
	return endpoint + "/predict"
}

func startRedisStore(t *testing.T, ctx context.Context) *storage.RedisStore {
	t.Helper()

	c, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { c.Terminate(context.Background()) })

	uri, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	s, err := storage.NewRedisStore(strings.TrimPrefix(uri, "redis://"), "", 0, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestPredictorE2E runs a BYOM-backed hourly prediction for an identified
// caller and reads it back from a Redis history.
func TestPredictorE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	endpoint := startBYOM(t, ctx, 240)
	store := startRedisStore(t, ctx)

	asm, _ := features.ForVariant(features.Hourly)
	hourly := models.NewBYOMModel(endpoint, models.BYOMOptions{
		ValuePath:    "result.rentals",
		FeatureNames: asm.Columns(),
		Logger:       discardLogger(),
	})

	svc, err := prediction.New(prediction.Config{
		Daily:  constantModel(t, features.Daily, 1000),
		Hourly: hourly,
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("prediction.New: %v", err)
	}
	mgr, _ := auth.NewManager("e2e-secret", time.Hour)

	e := &testEnv{
		handler: SetupRoutes(Options{Service: svc, Store: store, Auth: mgr, Logger: discardLogger()}),
		auth:    mgr,
	}
	token, _ := mgr.GenerateToken("e2e-user")

	w := e.do(t, http.MethodPost, "/predictions/hourly", hourlyBody, token)
	if w.Code != http.StatusOK {
		t.Fatalf("predict status = %d, body %q", w.Code, w.Body.String())
	}
	// 240 * 0.85 for weather code 2
	if resp := decode[predictResponse](t, w); resp.Prediction != 204 {
		t.Errorf("prediction = %d, want 204", resp.Prediction)
	}

	w = e.do(t, http.MethodGet, "/predictions/history", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, body %q", w.Code, w.Body.String())
	}
	resp := decode[historyResponse](t, w)
	if len(resp.Predictions) != 1 || resp.Predictions[0].Value != 204 || resp.Predictions[0].Type != "hourly" {
		t.Errorf("unexpected history %+v", resp.Predictions)
	}
}
