package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RunInitWizard interactively builds and saves a Config, used by
// `listforged init`.
func RunInitWizard(in *os.File, out *os.File) error {
	fmt.Fprintln(out, "listforge setup wizard")
	fmt.Fprintln(out, "Config will be stored under:", baseDir())

	s := bufio.NewScanner(in)
	read := func(prompt, def string) (string, error) {
		fmt.Fprintf(out, "%s [%s]: ", prompt, def)
		if !s.Scan() {
			return def, s.Err()
		}
		v := strings.TrimSpace(s.Text())
		if v == "" {
			return def, nil
		}
		return v, nil
	}

	def := Default()
	stateDir, _ := read("State directory", def.StateDir)
	listen, _ := read("Listen address", def.ListenAddr)
	serverName, _ := read("Server name (for internal-loop shortcut)", def.ServerName)
	tz, _ := read("Scheduler timezone", def.SchedulerTimezone)
	poolStr, _ := read("Worker pool size", strconv.Itoa(def.WorkerPoolSize))
	allowStr, _ := read("Admin-API allowlist entries (comma-separated CIDRs or host:port, optional)", "")

	var al []string
	for _, p := range strings.Split(allowStr, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			al = append(al, p)
		}
	}

	c := &Config{
		StateDir:              stateDir,
		ListenAddr:            listen,
		ServerName:            serverName,
		InternalAliases:       def.InternalAliases,
		SchedulerTimezone:     tz,
		WorkerPoolSize:        atoiDefault(poolStr, def.WorkerPoolSize),
		DefaultFetchTimeoutMS: def.DefaultFetchTimeoutMS,
		MisfireGraceSeconds:   def.MisfireGraceSeconds,
		Allowlist:             al,
	}
	if err := os.MkdirAll(c.StateDir, 0o700); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return Save(c)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
