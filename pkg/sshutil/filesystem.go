package sshutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
)

// FileSystem is the subset of file operations needed for state documents.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
}

// LocalFileSystem implements FileSystem on the local disk.
type LocalFileSystem struct{}

var (
	_ FileSystem = LocalFileSystem{}
	_ FileSystem = (*SFTPFileSystem)(nil)
)

// ReadFile reads a local file.
func (LocalFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFile writes a local file.
func (LocalFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// Stat returns local file info.
func (LocalFileSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// SFTPFileSystem implements FileSystem over SFTP.
type SFTPFileSystem struct {
	client *Client
	logger *slog.Logger

	mu         sync.RWMutex
	sftpClient *sftp.Client
}

// SFTPOption is a functional option for configuring the SFTPFileSystem.
type SFTPOption func(*SFTPFileSystem)

// WithSFTPLogger sets a custom logger for SFTP operations.
func WithSFTPLogger(logger *slog.Logger) SFTPOption {
	return func(fs *SFTPFileSystem) {
		if logger != nil {
			fs.logger = logger
		}
	}
}

// NewSFTPFileSystem creates a new SFTP-based FileSystem.
// The underlying SSH client must be connected before Connect is called.
func NewSFTPFileSystem(client *Client, opts ...SFTPOption) *SFTPFileSystem {
	fs := &SFTPFileSystem{
		client: client,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

// Connect establishes the SFTP session over the SSH connection.
func (fs *SFTPFileSystem) Connect(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.sftpClient != nil {
		return nil
	}

	sshConn, err := fs.client.GetConnection()
	if err != nil {
		return fmt.Errorf("getting SSH connection: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		return fmt.Errorf("creating SFTP client: %w", err)
	}

	fs.sftpClient = sftpClient
	fs.logger.Debug("SFTP session established")
	return nil
}

// Close closes the SFTP session. It does not close the SSH connection.
func (fs *SFTPFileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.sftpClient == nil {
		return nil
	}

	err := fs.sftpClient.Close()
	fs.sftpClient = nil
	return err
}

func (fs *SFTPFileSystem) getSFTP() (*sftp.Client, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.sftpClient == nil {
		return nil, ErrNotConnected
	}

	return fs.sftpClient, nil
}

// ReadFile reads the contents of a remote file.
func (fs *SFTPFileSystem) ReadFile(name string) ([]byte, error) {
	sftpClient, err := fs.getSFTP()
	if err != nil {
		return nil, err
	}

	file, err := sftpClient.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", name, err)
	}

	fs.logger.Debug("remote file read",
		slog.String("path", name),
		slog.Int("bytes", len(data)),
	)
	return data, nil
}

// WriteFile replaces a remote file. Data is written to a temporary file in
// the same directory first and renamed over the target.
func (fs *SFTPFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	sftpClient, err := fs.getSFTP()
	if err != nil {
		return err
	}

	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := sftpClient.MkdirAll(dir); err != nil {
			return fmt.Errorf("creating parent directory %s: %w", dir, err)
		}
	}

	tmp := name + ".tmp"
	file, err := sftpClient.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("opening file %s for write: %w", tmp, err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = sftpClient.Remove(tmp)
		return fmt.Errorf("writing to file %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		_ = sftpClient.Remove(tmp)
		return fmt.Errorf("closing file %s: %w", tmp, err)
	}

	if err := sftpClient.Chmod(tmp, perm); err != nil {
		fs.logger.Warn("failed to set file permissions",
			slog.String("path", tmp),
			slog.String("error", err.Error()),
		)
	}

	if err := sftpClient.PosixRename(tmp, name); err != nil {
		_ = sftpClient.Remove(tmp)
		return fmt.Errorf("renaming %s to %s: %w", tmp, name, err)
	}

	fs.logger.Debug("remote file written",
		slog.String("path", name),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Stat returns file info for a remote path.
func (fs *SFTPFileSystem) Stat(name string) (os.FileInfo, error) {
	sftpClient, err := fs.getSFTP()
	if err != nil {
		return nil, err
	}
	return sftpClient.Stat(name)
}

// Remote bundles an SSH connection and its SFTP session.
type Remote struct {
	*SFTPFileSystem
	client *Client
}

// Dial connects to the host in cfg and opens an SFTP session.
func Dial(ctx context.Context, cfg *Config, logger *slog.Logger) (*Remote, error) {
	client, err := NewClient(cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	fs := NewSFTPFileSystem(client, WithSFTPLogger(logger))
	if err := fs.Connect(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Remote{SFTPFileSystem: fs, client: client}, nil
}

// Close closes the SFTP session and the SSH connection.
func (r *Remote) Close() error {
	fsErr := r.SFTPFileSystem.Close()
	if err := r.client.Close(); err != nil {
		return err
	}
	return fsErr
}
