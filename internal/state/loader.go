package state

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/sshutil"
)

// DefaultSFTPEnvPrefix prefixes the environment variables holding SFTP
// credentials, e.g. ZONESYNC_SFTP_KEY_FILE.
const DefaultSFTPEnvPrefix = "ZONESYNC_SFTP_"

// Source locates a document.
type Source struct {
	// Location is a local path or an sftp://[user@]host[:port]/path URL.
	Location string

	// Format is detected from the file extension when empty.
	Format Format

	// Origin is the zone name used for relative names in zone files.
	Origin string
}

// remoteFile is the part of an SFTP session the loader uses.
type remoteFile interface {
	ReadFile(name string) ([]byte, error)
	Close() error
}

type dialFunc func(ctx context.Context, cfg *sshutil.Config, logger *slog.Logger) (remoteFile, error)

// Loader reads documents.
type Loader struct {
	logger    *slog.Logger
	local     sshutil.FileSystem
	dial      dialFunc
	envPrefix string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithFileSystem replaces the local file system.
func WithFileSystem(fs sshutil.FileSystem) LoaderOption {
	return func(l *Loader) {
		l.local = fs
	}
}

// WithSFTPEnvPrefix changes the prefix of the SFTP credential variables.
func WithSFTPEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:    slog.Default(),
		local:     sshutil.LocalFileSystem{},
		envPrefix: DefaultSFTPEnvPrefix,
		dial: func(ctx context.Context, cfg *sshutil.Config, logger *slog.Logger) (remoteFile, error) {
			remote, err := sshutil.Dial(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return remote, nil
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the document at src.
func (l *Loader) Load(ctx context.Context, src Source) (*Document, error) {
	if strings.TrimSpace(src.Location) == "" {
		return nil, fmt.Errorf("state source location is required")
	}

	var (
		data []byte
		path string
		err  error
	)
	if strings.HasPrefix(src.Location, "sftp://") {
		data, path, err = l.readRemote(ctx, src.Location)
	} else {
		path = src.Location
		data, err = l.local.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("reading state file: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	format := src.Format
	if format == "" {
		format = FormatFromPath(path)
	}

	doc, err := Parse(data, format, src.Origin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Location, err)
	}

	l.logger.Debug("loaded desired state",
		slog.String("source", src.Location),
		slog.String("format", string(format)),
		slog.Int("record_sets", len(doc.RecordSets)),
	)
	return doc, nil
}

func (l *Loader) readRemote(ctx context.Context, location string) ([]byte, string, error) {
	cfg, path, err := sshutil.ParseURL(location)
	if err != nil {
		return nil, "", err
	}
	if err := sshutil.LoadConfig(cfg, l.envPrefix); err != nil {
		return nil, "", fmt.Errorf("sftp configuration: %w", err)
	}

	remote, err := l.dial(ctx, cfg, l.logger)
	if err != nil {
		return nil, "", fmt.Errorf("connecting to %s: %w", cfg.Address(), err)
	}
	defer func() {
		if cerr := remote.Close(); cerr != nil {
			l.logger.Warn("closing sftp session", slog.String("error", cerr.Error()))
		}
	}()

	data, err := remote.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", location, err)
	}
	return data, path, nil
}
