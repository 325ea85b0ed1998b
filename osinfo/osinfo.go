// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package osinfo collects the host facts the os-presence client
// publishes: kernel release, distribution name, desktop environment,
// and boot time.
package osinfo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Unknown stands in for any fact that could not be determined.
const Unknown = "unknown"

// Info is a snapshot of host facts.
type Info struct {
	Kernel   string
	Distro   string
	Desktop  string
	BootTime time.Time
}

// Details is the one-line "Distro (Desktop)" summary.
func (i Info) Details() string {
	return fmt.Sprintf("%s (%s)", i.Distro, i.Desktop)
}

// Collector reads host facts. The zero value reads the live system.
type Collector struct {
	// Root prefixes /proc and /etc paths. Empty means "/".
	Root string

	// Now defaults to time.Now.
	Now func() time.Time

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// Release overrides the uname lookup.
	Release func() (string, error)
}

// Collect gathers every fact. Only a failure to read the uptime is an
// error; the others degrade to Unknown.
func (c Collector) Collect() (Info, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	getenv := os.Getenv
	if c.Getenv != nil {
		getenv = c.Getenv
	}
	release := kernelRelease
	if c.Release != nil {
		release = c.Release
	}

	uptime, err := os.ReadFile(c.path("proc/uptime"))
	if err != nil {
		return Info{}, fmt.Errorf("reading uptime: %w", err)
	}
	bootTime, err := ParseBootTime(uptime, now())
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Kernel:   Unknown,
		Distro:   Unknown,
		Desktop:  Unknown,
		BootTime: bootTime,
	}
	if kernel, err := release(); err == nil && kernel != "" {
		info.Kernel = kernel
	}
	if osRelease, err := os.ReadFile(c.path("etc/os-release")); err == nil {
		info.Distro = ParsePrettyName(osRelease)
	}
	if desktop := getenv("XDG_CURRENT_DESKTOP"); desktop != "" {
		info.Desktop = desktop
	}
	return info, nil
}

func (c Collector) path(relative string) string {
	root := c.Root
	if root == "" {
		root = "/"
	}
	return filepath.Join(root, relative)
}

func kernelRelease() (string, error) {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(name.Release[:]), nil
}

// ParseBootTime derives the boot time from /proc/uptime content (the
// first field is seconds since boot) and the current time, truncated
// to whole seconds.
func ParseBootTime(uptime []byte, now time.Time) (time.Time, error) {
	fields := strings.Fields(string(uptime))
	if len(fields) == 0 {
		return time.Time{}, errors.New("parsing uptime: empty")
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || seconds < 0 {
		return time.Time{}, fmt.Errorf("parsing uptime %q: invalid seconds", fields[0])
	}
	return time.Unix(now.Unix()-int64(seconds), 0), nil
}

// ParsePrettyName returns PRETTY_NAME from os-release content, with
// surrounding quotes removed, or Unknown.
func ParsePrettyName(osRelease []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(osRelease))
	for scanner.Scan() {
		value, found := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "PRETTY_NAME=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)
		if value == "" {
			return Unknown
		}
		return value
	}
	return Unknown
}
