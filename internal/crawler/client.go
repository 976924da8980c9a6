package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// ErrInvalidProxyAddress is returned when the proxy URL cannot be used.
var ErrInvalidProxyAddress = errors.New("invalid proxy address: expected socks5://host:port or http(s)://host:port")

// maxRedirects bounds redirect chains such as wiki title normalization.
const maxRedirects = 10

// NewHTTPClient creates the HTTP client used to fetch source pages.
//
// proxyAddress may be empty (direct connection), a SOCKS5 URL
// ("socks5://127.0.0.1:9050", optionally with user:password) or an HTTP
// proxy URL ("http://proxy.local:3128").
func NewHTTPClient(proxyAddress string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if proxyAddress != "" {
		u, err := parseProxyURL(proxyAddress)
		if err != nil {
			return nil, err
		}

		switch u.Scheme {
		case "socks5", "socks5h":
			dialer, err := socksDialer(u)
			if err != nil {
				return nil, err
			}
			transport.Proxy = nil
			transport.DialContext = dialer
		default:
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// parseProxyURL validates the proxy URL: a supported scheme and a host
// with a port in 1-65535.
func parseProxyURL(address string) (*url.URL, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxyAddress, err)
	}

	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return nil, ErrInvalidProxyAddress
	}

	if u.Hostname() == "" {
		return nil, ErrInvalidProxyAddress
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port < 1 || port > 65535 {
		return nil, ErrInvalidProxyAddress
	}

	return u, nil
}

// socksDialer builds a context-aware dial function through a SOCKS5 proxy.
func socksDialer(u *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
