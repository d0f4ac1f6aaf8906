// Package provider answers a caller-ID host the way a platform directory
// provider does: it announces itself, resolves phone numbers against the
// directory and serves the photo referenced by its lookup rows.
//
// The provider is read-only. Edits go through directory.Directory directly.
package provider

import (
	"context"
	"embed"
	"errors"
	"io"
	"runtime"
	"strings"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/match"
	"github.com/sw33tLie/callerid/pkg/phone"
)

var (
	// ErrUnsupportedOperation is returned for every write attempted through the provider.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrBinding is returned by New when no directory is available to serve from.
	ErrBinding = errors.New("provider has no directory to bind to")
	// ErrNotFound is returned for paths and assets the provider does not serve.
	ErrNotFound = errors.New("not found")
)

// SyntheticRowID marks lookup rows as generated on the fly. The host must not
// treat it as a stable row it can query again.
const SyntheticRowID int64 = -1

// DefaultAuthority prefixes photo URIs when none is configured.
const DefaultAuthority = "content://com.sw33tlie.callerid"

// TypeDescriptor identifies the provider to the host.
const TypeDescriptor = "app_name"

//go:embed assets/primary_photo.png
var assets embed.FS

const primaryPhotoAsset = "assets/primary_photo.png"

// Logger receives the provider's diagnostics. *logrus.Logger satisfies it.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds the provider settings. The zero value is usable.
type Config struct {
	// Authority is the base every photo URI is built on.
	Authority string
	// Region is the numbering plan incoming numbers are read in. Defaults to US.
	Region string
	// Workers bounds concurrent resolutions. Defaults to GOMAXPROCS.
	Workers int
	Logger  Logger
}

type Provider struct {
	dir       *directory.Directory
	engine    *match.Engine
	pool      *pool
	authority string
	log       Logger
}

// New binds a provider to dir. It fails immediately, not per query, when
// there is nothing to bind to.
func New(dir *directory.Directory, cfg Config) (*Provider, error) {
	if dir == nil {
		return nil, ErrBinding
	}
	if cfg.Authority == "" {
		cfg.Authority = DefaultAuthority
	}
	if cfg.Region == "" {
		cfg.Region = phone.DefaultRegion
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Provider{
		dir:       dir,
		engine:    match.New(dir, cfg.Region),
		pool:      newPool(cfg.Workers),
		authority: strings.TrimRight(cfg.Authority, "/"),
		log:       cfg.Logger,
	}, nil
}

// Close stops the worker pool. Lookups after Close fail with ErrClosed.
func (p *Provider) Close() error {
	p.pool.Close()
	return nil
}

// ExportSupport tells the host who may see entries of this directory.
type ExportSupport int

const (
	ExportSupportNone ExportSupport = iota
	ExportSupportSameAccountOnly
	ExportSupportAnyAccount
)

func (e ExportSupport) MarshalText() ([]byte, error) {
	switch e {
	case ExportSupportSameAccountOnly:
		return []byte("SAME_ACCOUNT_ONLY"), nil
	case ExportSupportAnyAccount:
		return []byte("ANY_ACCOUNT"), nil
	}
	return []byte("NONE"), nil
}

// ShortcutSupport tells the host whether it may create shortcuts to entries.
type ShortcutSupport int

const (
	ShortcutSupportNone ShortcutSupport = iota
	ShortcutSupportDataItemsOnly
	ShortcutSupportFull
)

func (s ShortcutSupport) MarshalText() ([]byte, error) {
	switch s {
	case ShortcutSupportDataItemsOnly:
		return []byte("DATA_ITEMS_ONLY"), nil
	case ShortcutSupportFull:
		return []byte("FULL"), nil
	}
	return []byte("NONE"), nil
}

// DirectoryInfo is the single row answering a capability request.
type DirectoryInfo struct {
	AccountName     string          `json:"account_name"`
	AccountType     string          `json:"account_type"`
	DisplayName     string          `json:"display_name"`
	TypeDescriptor  string          `json:"type_descriptor"`
	ExportSupport   ExportSupport   `json:"export_support"`
	ShortcutSupport ShortcutSupport `json:"shortcut_support"`
}

// DescribeSelf announces the provider. It does not depend on directory content.
func (p *Provider) DescribeSelf() DirectoryInfo {
	return DirectoryInfo{
		AccountName:     directory.AppName,
		AccountType:     directory.AppName,
		DisplayName:     directory.AppName,
		TypeDescriptor:  TypeDescriptor,
		ExportSupport:   ExportSupportSameAccountOnly,
		ShortcutSupport: ShortcutSupportNone,
	}
}

// LookupRow is the answer to a number query.
type LookupRow struct {
	RowID             int64  `json:"row_id"`
	DisplayName       string `json:"display_name"`
	Label             string `json:"label"`
	PhotoURI          string `json:"photo_uri"`
	PhotoThumbnailURI string `json:"photo_thumb_uri"`
}

// PhotoURI is where the host fetches the photo of any resolved caller.
func (p *Provider) PhotoURI() string {
	return p.authority + "/" + PrimaryPhotoPath
}

// LookupNumber resolves number on the worker pool and waits for the result.
// It returns zero or one row; no match is not an error.
func (p *Provider) LookupNumber(ctx context.Context, number string) ([]LookupRow, error) {
	var (
		rec   directory.Record
		found bool
	)
	err := p.pool.Do(ctx, func() error {
		rec, found = p.engine.Resolve(ctx, number)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		p.log.Debugf("No directory entry for %q", number)
		return []LookupRow{}, nil
	}
	p.log.Debugf("Resolved %q to %s", number, rec.FullName())
	return []LookupRow{{
		RowID:             SyntheticRowID,
		DisplayName:       rec.FullName(),
		Label:             rec.DisplayLabel(),
		PhotoURI:          p.PhotoURI(),
		PhotoThumbnailURI: p.PhotoURI(),
	}}, nil
}

// OpenAsset returns a read-only stream of the bundled photo. Every resolved
// caller shares the same placeholder.
func (p *Provider) OpenAsset(path string) (io.ReadCloser, error) {
	if route, _ := Match(path); route != RoutePrimaryPhoto {
		return nil, ErrNotFound
	}
	return assets.Open(primaryPhotoAsset)
}

// Type returns the MIME type served at path, or "" when it has none.
func (p *Provider) Type(path string) string {
	if route, _ := Match(path); route == RoutePrimaryPhoto {
		return "image/png"
	}
	return ""
}

// Insert always fails: the provider never writes.
func (p *Provider) Insert(_ context.Context, path string, _ map[string]any) error {
	p.log.Warnf("Rejected insert on %s", path)
	return ErrUnsupportedOperation
}

// Update always fails: the provider never writes.
func (p *Provider) Update(_ context.Context, path string, _ map[string]any) error {
	p.log.Warnf("Rejected update on %s", path)
	return ErrUnsupportedOperation
}

// Delete always fails: the provider never writes.
func (p *Provider) Delete(_ context.Context, path string) error {
	p.log.Warnf("Rejected delete on %s", path)
	return ErrUnsupportedOperation
}
