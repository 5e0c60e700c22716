package adapter

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// InternalResolver implements the Internal-Loop Shortcut (C9): when a
// url-source list's configured URL actually points back at one of this
// server's own published artifacts, the fetch is served directly from
// Lookup instead of round-tripping through HTTP — avoiding a case where
// the server would otherwise issue an outbound request to itself.
type InternalResolver struct {
	ServerName string
	Aliases    []string
	// Lookup returns the already-published bytes for a public artifact
	// token and kind ("csv", "json", or "txt"), wired to the Publisher.
	Lookup func(ctx context.Context, kind, token string) ([]byte, string, bool, error)
}

// match reports whether u points at this server, returning the public
// artifact kind and token if so.
func (r *InternalResolver) match(rawURL string) (kind, token string, ok bool) {
	if r == nil || r.Lookup == nil {
		return "", "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	host := u.Hostname()
	if !strings.EqualFold(host, r.ServerName) {
		matched := false
		for _, a := range r.Aliases {
			if strings.EqualFold(host, a) {
				matched = true
				break
			}
		}
		if !matched {
			return "", "", false
		}
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "public" {
		return "", "", false
	}
	switch parts[1] {
	case "csv", "json", "txt":
		return parts[1], parts[2], true
	}
	return "", "", false
}

// URLAdapter implements Source=url (and curl/script aliased through
// api+api_type handled by Resolve, so this is the plain HTTP GET path).
type URLAdapter struct {
	Internal *InternalResolver
}

func (a *URLAdapter) Fetch(ctx context.Context, req FetchRequest) (Payload, error) {
	target := req.Config.URL
	if req.URLOverride != "" {
		target = req.URLOverride
	}
	if target == "" {
		return Payload{}, fmt.Errorf("adapter: url: empty url")
	}

	if kind, token, ok := a.Internal.match(target); ok {
		body, ct, found, err := a.Internal.Lookup(ctx, kind, token)
		if err != nil {
			return Payload{}, fmt.Errorf("adapter: internal loop lookup: %w", err)
		}
		if !found {
			return Payload{}, fmt.Errorf("adapter: internal loop: no published %s artifact for token", kind)
		}
		return Payload{Body: body, ContentType: ct}, nil
	}

	timeout := timeoutOrDefault(req.Config, 30*time.Second)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := httpClientFromEnv()
	if err != nil {
		return Payload{}, fmt.Errorf("adapter: url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("adapter: url: build request: %w", err)
	}
	for k, v := range req.Config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Payload{}, fmt.Errorf("adapter: url: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return Payload{}, fmt.Errorf("adapter: url: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Payload{}, fmt.Errorf("adapter: url: status %d", resp.StatusCode)
	}
	return Payload{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// httpClientFromEnv builds an http.Client honoring the same proxy and TLS
// verification env vars the original Python requests-based importer
// respected: HTTP_PROXY/HTTPS_PROXY/NO_PROXY (via http.ProxyFromEnvironment,
// which already reads these), VERIFY_SSL to disable certificate
// verification, and REQUESTS_CA_BUNDLE/SSL_CERT_FILE to point at a custom
// CA bundle.
func httpClientFromEnv() (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("VERIFY_SSL"))); v == "0" || v == "false" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	caPath := os.Getenv("REQUESTS_CA_BUNDLE")
	if caPath == "" {
		caPath = os.Getenv("SSL_CERT_FILE")
	}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle %s: %w", caPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca bundle %s: no certificates found", caPath)
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.RootCAs = pool
	}
	return &http.Client{Transport: transport}, nil
}
