package sshutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSFTPFileSystem_NotConnected(t *testing.T) {
	client, err := NewClient(&Config{Host: "example.com", User: "admin", Password: "secret", InsecureIgnoreHostKey: true})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	fs := NewSFTPFileSystem(client, WithSFTPLogger(testLogger()))

	if _, err := fs.ReadFile("/a"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ReadFile() error = %v", err)
	}
	if err := fs.WriteFile("/a", nil, 0o644); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WriteFile() error = %v", err)
	}
	if _, err := fs.Stat("/a"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Stat() error = %v", err)
	}
	if err := fs.Connect(context.Background()); err == nil {
		t.Error("Connect() without SSH connection should fail")
	}
	if err := fs.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestLocalFileSystem(t *testing.T) {
	var fs FileSystem = LocalFileSystem{}
	name := filepath.Join(t.TempDir(), "zone.yaml")

	if err := fs.WriteFile(name, []byte("a"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := fs.ReadFile(name)
	if err != nil || string(data) != "a" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
	if _, err := fs.Stat(name + ".missing"); !os.IsNotExist(err) {
		t.Errorf("Stat() error = %v", err)
	}
}
