package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Pinger — транспорт одного замера round-trip до адреса.
type Pinger interface {
	Ping(ctx context.Context, addr string) (time.Duration, error)
}

// TCPPinger измеряет время установки TCP-соединения.
type TCPPinger struct {
	dialer net.Dialer
}

// Ping открывает и сразу закрывает TCP-соединение с addr (host:port).
func (p *TCPPinger) Ping(ctx context.Context, addr string) (time.Duration, error) {
	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", addr, err)
	}
	elapsed := time.Since(start)
	conn.Close()
	return elapsed, nil
}

// HTTPPinger измеряет время HTTP GET запроса к хосту.
type HTTPPinger struct {
	Client *http.Client
}

// Ping выполняет GET http://addr и ждёт заголовков ответа.
// Любой HTTP статус считается успешным замером.
func (p *HTTPPinger) Ping(ctx context.Context, addr string) (time.Duration, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + addr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}
	elapsed := time.Since(start)
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	return elapsed, nil
}
