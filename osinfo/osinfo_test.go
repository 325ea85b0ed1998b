// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package osinfo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseBootTime(t *testing.T) {
	t.Parallel()
	now := time.Unix(1700000000, 0)
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"3600.25 7200.00\n", time.Unix(1700000000-3600, 0), false},
		{"0.99 0.00", now, false},
		{"", time.Time{}, true},
		{"soon 1", time.Time{}, true},
		{"-5 1", time.Time{}, true},
	}
	for _, test := range tests {
		got, err := ParseBootTime([]byte(test.input), now)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseBootTime(%q) succeeded", test.input)
			}
			continue
		}
		if err != nil || !got.Equal(test.want) {
			t.Errorf("ParseBootTime(%q) = %v, %v; want %v", test.input, got, err, test.want)
		}
	}
}

func TestParsePrettyName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"NAME=Fedora\nPRETTY_NAME=\"Fedora Linux 41 (Workstation Edition)\"\nID=fedora\n": "Fedora Linux 41 (Workstation Edition)",
		"PRETTY_NAME='Arch Linux'":    "Arch Linux",
		"PRETTY_NAME=Debian":           "Debian",
		"NAME=Alpine\n":                Unknown,
		"PRETTY_NAME=\"\"":             Unknown,
		"  PRETTY_NAME=\"Spaced\"  \n": "Spaced",
	}
	for input, want := range tests {
		if got := ParsePrettyName([]byte(input)); got != want {
			t.Errorf("ParsePrettyName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proc", "uptime"), "100.5 50.0\n")
	writeFile(t, filepath.Join(root, "etc", "os-release"), "PRETTY_NAME=\"Test OS\"\n")

	collector := Collector{
		Root:    root,
		Now:     func() time.Time { return time.Unix(1700000000, 0) },
		Getenv:  func(name string) string { return map[string]string{"XDG_CURRENT_DESKTOP": "GNOME"}[name] },
		Release: func() (string, error) { return "6.18.0-test", nil },
	}
	info, err := collector.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := Info{Kernel: "6.18.0-test", Distro: "Test OS", Desktop: "GNOME", BootTime: time.Unix(1700000000-100, 0)}
	if info.Kernel != want.Kernel || info.Distro != want.Distro || info.Desktop != want.Desktop || !info.BootTime.Equal(want.BootTime) {
		t.Fatalf("info = %+v, want %+v", info, want)
	}
	if info.Details() != "Test OS (GNOME)" {
		t.Fatalf("Details = %q", info.Details())
	}
}

func TestCollectDegrades(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proc", "uptime"), "1 1\n")

	info, err := Collector{
		Root:    root,
		Getenv:  func(string) string { return "" },
		Release: func() (string, error) { return "", errors.New("no uname") },
	}.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if info.Kernel != Unknown || info.Distro != Unknown || info.Desktop != Unknown {
		t.Fatalf("info = %+v, want every optional fact unknown", info)
	}
}

func TestCollectRequiresUptime(t *testing.T) {
	t.Parallel()
	if _, err := (Collector{Root: t.TempDir()}).Collect(); err == nil {
		t.Fatal("Collect succeeded without /proc/uptime")
	}
}

func TestCollectLiveSystem(t *testing.T) {
	t.Parallel()
	if _, err := os.Stat("/proc/uptime"); err != nil {
		t.Skip("no /proc/uptime on this system")
	}
	info, err := Collector{}.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if info.Kernel == Unknown || info.BootTime.After(time.Now()) {
		t.Fatalf("implausible live info: %+v", info)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
