// Package testserver runs the full HTTP stack over an in-memory SQLite
// database for end-to-end tests.
package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/domain/settings"
	"github.com/rpggio/inkwell/internal/mcp"
	"github.com/rpggio/inkwell/internal/metrics"
	"github.com/rpggio/inkwell/internal/notify"
	"github.com/rpggio/inkwell/internal/render"
	"github.com/rpggio/inkwell/internal/sqlite"
	"github.com/rpggio/inkwell/internal/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Store    *sqlite.KVStore
	Events   *notify.Broadcaster
	Poller   *notify.Poller
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
	Exports  *novel.FileDownloader
}

func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	store := sqlite.NewKVStore(db)
	events := notify.NewBroadcaster(nil)
	events.SetObserver(collector)

	settingsSvc := settings.NewService(store, events, nil)
	accounts := account.NewService(store, settingsSvc, account.NewBcryptHasher(bcrypt.MinCost), events, nil)
	sessions := session.NewService(store, accounts, collector, nil)
	projectRepo := novel.NewKVRepository(store, nil)
	accounts.SetPurger(projectRepo)
	projects := novel.NewService(nil, projectRepo, render.New(), events, collector, nil)

	exports := &novel.FileDownloader{Dir: t.TempDir()}
	handler := mcp.NewHandler(mcp.Services{
		Sessions: sessions,
		Projects: projects,
		Accounts: accounts,
		Settings: settingsSvc,
		Events:   events,
		Exports:  exports,
		Recorder: collector,
	})

	mcpServer := mcp.NewServer(mcp.Config{Handler: handler, TransportMode: "http"})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	poller := notify.NewPoller(store, events, nil)
	poller.Watch(settings.Key, notify.TopicSettings)
	poller.Watch(account.UsersKey, notify.TopicUsers)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		Handler:  handler,
		Sessions: sessions,
		Projects: projects,
		MCP:      mcpHandler,
		Metrics:  metrics.Handler(registry),
		Recorder: collector,
	}))

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Store:    store,
		Events:   events,
		Poller:   poller,
		Metrics:  collector,
		Registry: registry,
		Exports:  exports,
	}

	t.Cleanup(func() {
		server.Close()
		events.Close()
		_ = db.Close()
	})

	return ts
}
