package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// ScriptAdapter implements Source=script: the configured code is run as
// JavaScript inside an embedded goja runtime. goja exposes no filesystem,
// process, or environment bindings by default, which is what makes this
// sandbox-by-omission rather than sandbox-by-denylist: there is simply
// nothing in the global scope to reach the host with except what this
// adapter explicitly sets.
//
// The script is expected to return a string (the fetched payload) or call
// the injected print() to accumulate output, mirroring the original
// subprocess-script importer's stdout-capture contract.
type ScriptAdapter struct{}

func (a *ScriptAdapter) Fetch(ctx context.Context, req FetchRequest) (Payload, error) {
	code := req.Config.Code
	if strings.TrimSpace(code) == "" {
		return Payload{}, fmt.Errorf("adapter: script: empty code")
	}

	timeout := timeoutOrDefault(req.Config, 60*time.Second)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vm := goja.New()
	var captured strings.Builder

	vm.Set("print", func(args ...interface{}) {
		for i, a := range args {
			if i > 0 {
				captured.WriteByte(' ')
			}
			fmt.Fprint(&captured, a)
		}
		captured.WriteByte('\n')
	})
	vm.Set("httpGet", func(url string) string {
		body, err := scriptHTTPGet(ctx, url)
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		return body
	})

	done := make(chan struct{})
	var value goja.Value
	var runErr error
	go func() {
		defer close(done)
		value, runErr = vm.RunString(code)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		vm.Interrupt("timeout")
		<-done
		return Payload{Logs: captured.String()}, fmt.Errorf("adapter: script: %w", ctx.Err())
	}

	if runErr != nil {
		return Payload{Logs: captured.String()}, fmt.Errorf("adapter: script: execution failed: %w", runErr)
	}

	out := captured.String()
	if out == "" && value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		out = value.String()
	}
	if strings.TrimSpace(out) == "" {
		return Payload{Logs: captured.String()}, fmt.Errorf("adapter: script: %w", ErrEmptyOutput)
	}
	return Payload{Body: []byte(out), Logs: captured.String()}, nil
}

func scriptHTTPGet(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
