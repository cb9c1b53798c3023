package server

import (
	"context"

	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"

	"github.com/AnotherRiz/BitX-Sessions/internal/app"
	"github.com/AnotherRiz/BitX-Sessions/internal/config"
	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
)

type mockSessionService struct {
	listFn      func(tab domain.TabRef) (*app.DomainSessions, error)
	saveFn      func(ctx context.Context, tab domain.TabRef, name string) (domain.Session, error)
	switchFn    func(ctx context.Context, tab domain.TabRef, id string) error
	blankFn     func(ctx context.Context, tab domain.TabRef) error
	renameFn    func(ctx context.Context, id, newName string, overwrite bool) error
	overwriteFn func(ctx context.Context, tab domain.TabRef, id, newName string) (domain.Session, error)
	deleteFn    func(ctx context.Context, id string) error
	reorderFn   func(ctx context.Context, tab domain.TabRef, ids []string) error
	exportFn    func() ([]byte, error)
	importFn    func(ctx context.Context, data []byte) (int, error)
}

func (m *mockSessionService) ListForTab(tab domain.TabRef) (*app.DomainSessions, error) {
	if m.listFn != nil {
		return m.listFn(tab)
	}
	return &app.DomainSessions{Domain: "example.com"}, nil
}

func (m *mockSessionService) SaveCurrent(ctx context.Context, tab domain.TabRef, name string) (domain.Session, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, tab, name)
	}
	return domain.Session{}, nil
}

func (m *mockSessionService) Switch(ctx context.Context, tab domain.TabRef, id string) error {
	if m.switchFn != nil {
		return m.switchFn(ctx, tab, id)
	}
	return nil
}

func (m *mockSessionService) NewBlank(ctx context.Context, tab domain.TabRef) error {
	if m.blankFn != nil {
		return m.blankFn(ctx, tab)
	}
	return nil
}

func (m *mockSessionService) Rename(ctx context.Context, id, newName string, overwrite bool) error {
	if m.renameFn != nil {
		return m.renameFn(ctx, id, newName, overwrite)
	}
	return nil
}

func (m *mockSessionService) OverwriteWithCurrent(ctx context.Context, tab domain.TabRef, id, newName string) (domain.Session, error) {
	if m.overwriteFn != nil {
		return m.overwriteFn(ctx, tab, id, newName)
	}
	return domain.Session{}, nil
}

func (m *mockSessionService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockSessionService) Reorder(ctx context.Context, tab domain.TabRef, ids []string) error {
	if m.reorderFn != nil {
		return m.reorderFn(ctx, tab, ids)
	}
	return nil
}

func (m *mockSessionService) Export() ([]byte, error) {
	if m.exportFn != nil {
		return m.exportFn()
	}
	return []byte(`[]`), nil
}

func (m *mockSessionService) Import(ctx context.Context, data []byte) (int, error) {
	if m.importFn != nil {
		return m.importFn(ctx, data)
	}
	return 0, nil
}

type mockTransferClient struct {
	sendFn    func(ctx context.Context, payload []byte) (string, error)
	receiveFn func(ctx context.Context, code string) ([]byte, error)
}

func (m *mockTransferClient) Send(ctx context.Context, payload []byte) (string, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, payload)
	}
	return "CODE", nil
}

func (m *mockTransferClient) Receive(ctx context.Context, code string) ([]byte, error) {
	if m.receiveFn != nil {
		return m.receiveFn(ctx, code)
	}
	return []byte(`[]`), nil
}

type mockHub struct {
	connected bool
}

func (m *mockHub) HandleConn(*websocket.Conn) {}
func (m *mockHub) Connected() bool            { return m.connected }

type mockRedis struct {
	err error
}

func (m mockRedis) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", m.err)
}

func newTestServer(svc sessionService, transfer transferClient) *Server {
	cfg := &config.Config{AppEnv: "test", Port: "0"}
	return NewServer(cfg, svc, &mockHub{connected: true}, transfer, mockRedis{})
}
