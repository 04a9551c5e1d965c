package scraper

import (
	"context"
	"testing"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

type stubPlugin struct{ version string }

func (s *stubPlugin) DetectVersion(ctx context.Context) (string, error) { return s.version, nil }
func (s *stubPlugin) Login(ctx context.Context, creds models.Credentials) error { return nil }
func (s *stubPlugin) ListProcesses(ctx context.Context) ([]ProcessRef, error)   { return nil, nil }
func (s *stubPlugin) OpenProcess(ctx context.Context, linkID string) error      { return nil }
func (s *stubPlugin) ClassifyAccess(ctx context.Context) (models.AccessType, error) {
	return models.AccessIntegral, nil
}
func (s *stubPlugin) ExtractAuthority(ctx context.Context) (string, error) { return "", nil }
func (s *stubPlugin) ListDocuments(ctx context.Context) ([]DocumentRef, error) {
	return nil, nil
}
func (s *stubPlugin) DownloadDocument(ctx context.Context, documentNumber string) (DownloadedFile, error) {
	return DownloadedFile{}, nil
}

func stubFactory(version string) Factory {
	return func(baseURL string) Plugin { return &stubPlugin{version: version} }
}

func TestRegistry_ResolveKnownVersion(t *testing.T) {
	reg := NewRegistry(map[string]Factory{
		"4.2.0": stubFactory("4.2.0"),
	})

	p, err := reg.Resolve("4.2.0", "https://tenant-a.example")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p == nil {
		t.Fatal("Resolve returned nil plugin for a registered version")
	}
}

func TestRegistry_ResolveUnknownVersionIsFatalConfigError(t *testing.T) {
	reg := NewRegistry(map[string]Factory{
		"4.2.0": stubFactory("4.2.0"),
	})

	_, err := reg.Resolve("9.9.9", "https://tenant-a.example")
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected an AppError, got %v", err)
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeConfig {
		t.Errorf("got code %v, want %v", apperrors.CodeOf(err), apperrors.ErrCodeConfig)
	}
	if !apperrors.IsFatal(err) {
		t.Error("an unregistered scraper version must be fatal")
	}
}

func TestNewRegistry_ClonesInputMap(t *testing.T) {
	input := map[string]Factory{"4.2.0": stubFactory("4.2.0")}
	reg := NewRegistry(input)

	input["4.3.0"] = stubFactory("4.3.0")

	if _, err := reg.Resolve("4.3.0", "https://tenant-a.example"); err == nil {
		t.Error("mutating the caller's map after NewRegistry must not affect the registry")
	}
}
