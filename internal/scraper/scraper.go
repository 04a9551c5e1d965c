// Package scraper defines the plugin contract every supported upstream
// version must implement, and the registry that resolves a tenant's
// configured scraper_version to a concrete plugin instance.
package scraper

import (
	"context"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

type ctxKey int

const downloadDirKey ctxKey = iota

// WithDownloadDir attaches the scoped temporary directory a browser
// session has prepared for downloads, so DownloadDocument can point
// the browser's download behavior at it without the Plugin interface
// needing to know about session lifecycle at all.
func WithDownloadDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, downloadDirKey, dir)
}

// DownloadDirFromContext retrieves the directory set by WithDownloadDir.
func DownloadDirFromContext(ctx context.Context) (string, bool) {
	dir, ok := ctx.Value(downloadDirKey).(string)
	return dir, ok
}

// ProcessRef is one row yielded by listing the upstream process index:
// a process number paired with the link id used to open it.
type ProcessRef struct {
	ProcessNumber string
	LinkID        string
}

// DocumentRef is one document row as read off a process page.
type DocumentRef struct {
	Number string
	Type   string
	Date   string
	Signer string
}

// DownloadedFile is the handle chromedp's download machinery leaves
// behind in the session's scoped temporary directory.
type DownloadedFile struct {
	Path     string
	Filename string
}

// Plugin is the capability interface every upstream version must
// satisfy: login, list processes, open one, classify its access level,
// extract authority and documents, and download one document. Plugins
// are composed from a family-level default plus version-specific
// overrides (see scraper/v4), never built through type inheritance.
type Plugin interface {
	// DetectVersion inspects an already-loaded page and returns a
	// version string, or "" if it cannot tell. Advisory only — never
	// used to pick a plugin for an extraction run.
	DetectVersion(ctx context.Context) (string, error)

	Login(ctx context.Context, creds models.Credentials) error

	ListProcesses(ctx context.Context) ([]ProcessRef, error)

	OpenProcess(ctx context.Context, linkID string) error

	ClassifyAccess(ctx context.Context) (models.AccessType, error)

	ExtractAuthority(ctx context.Context) (string, error)

	ListDocuments(ctx context.Context) ([]DocumentRef, error)

	DownloadDocument(ctx context.Context, documentNumber string) (DownloadedFile, error)
}

// Factory builds a Plugin instance pointed at one tenant's upstream
// instance. Every supported scraper_version registers one of these,
// not a bare Plugin value, because each tenant runs its own instance
// at its own upstream_url even when several tenants share a version.
type Factory func(baseURL string) Plugin

// Registry is a process-wide, read-only-after-construction mapping
// from scraper_version to a plugin Factory. Built once at startup; no
// mutex, mirroring "populated once at startup; read-only thereafter".
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds the registry from a fixed set of factories, one
// per supported version. There is no runtime plugin loading.
func NewRegistry(factories map[string]Factory) *Registry {
	cloned := make(map[string]Factory, len(factories))
	for version, f := range factories {
		cloned[version] = f
	}
	return &Registry{factories: cloned}
}

// Resolve builds the plugin registered for a scraper_version, pointed
// at baseURL. A missing or unregistered version is fatal for any run
// against that tenant.
func (r *Registry) Resolve(version, baseURL string) (Plugin, error) {
	f, ok := r.factories[version]
	if !ok {
		return nil, apperrors.NewConfigError("no scraper plugin registered for version " + version)
	}
	return f(baseURL), nil
}
