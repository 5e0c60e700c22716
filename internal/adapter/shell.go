package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"
)

// ShellAdapter implements Source=curl: the configured curl_command string
// is executed as a shell command (not literally shelled out to the curl
// binary — the command is whatever the user configured, run through
// /bin/sh -c so pipelines and shell features work the way the original
// subprocess-based importer allowed).
type ShellAdapter struct {
	Internal *InternalResolver
}

// urlInCommand extracts the first http(s) URL embedded anywhere in a shell
// command string (e.g. `curl -s https://example.com/feed.json | jq ...`).
var urlInCommand = regexp.MustCompile(`https?://[^\s'"]+`)

func (a *ShellAdapter) Fetch(ctx context.Context, req FetchRequest) (Payload, error) {
	command := req.Config.CurlCommand
	if command == "" {
		return Payload{}, fmt.Errorf("adapter: shell: empty curl_command")
	}

	if embedded := urlInCommand.FindString(command); embedded != "" {
		if kind, token, ok := a.Internal.match(embedded); ok {
			body, ct, found, err := a.Internal.Lookup(ctx, kind, token)
			if err != nil {
				return Payload{}, fmt.Errorf("adapter: internal loop lookup: %w", err)
			}
			if !found {
				return Payload{}, fmt.Errorf("adapter: internal loop: no published %s artifact for token", kind)
			}
			return Payload{Body: body, ContentType: ct}, nil
		}
	}

	timeout := timeoutOrDefault(req.Config, 60*time.Second)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	logs := stderr.String()

	if runErr != nil {
		return Payload{Logs: logs}, fmt.Errorf("adapter: shell: command failed: %w", runErr)
	}
	if stdout.Len() == 0 {
		return Payload{Logs: logs}, fmt.Errorf("adapter: shell: %w", ErrEmptyOutput)
	}
	return Payload{Body: stdout.Bytes(), Logs: logs}, nil
}

// ErrEmptyOutput is returned when a shell or script source produces no
// output at all, distinguished from a successfully decoded empty result
// set.
var ErrEmptyOutput = fmt.Errorf("adapter: empty output")
