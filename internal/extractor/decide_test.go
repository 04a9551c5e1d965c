package extractor

import (
	"testing"
	"time"

	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/scraper"
)

func TestClassifyAccess_IntegralAlwaysProceeds(t *testing.T) {
	d := classifyAccess(models.AccessIntegral, false, "", "")
	if !d.Proceed || d.Category != "restricted" || d.CategoryStatus != models.CategoryCategorized {
		t.Errorf("got %+v, want proceed with category=restricted/categorized", d)
	}
}

func TestClassifyAccess_PartialUnseenGoesPending(t *testing.T) {
	d := classifyAccess(models.AccessPartial, false, "", "")
	if d.Proceed || d.CategoryStatus != models.CategoryPending {
		t.Errorf("got %+v, want pending and not proceeding", d)
	}
}

func TestClassifyAccess_PartialPreviouslyUncategorizedGoesPending(t *testing.T) {
	d := classifyAccess(models.AccessPartial, true, "restricted", models.CategoryPending)
	if d.Proceed {
		t.Errorf("got %+v, want not proceeding while category_status != categorized", d)
	}
}

func TestClassifyAccess_PartialCategorizedRestrictedProceeds(t *testing.T) {
	d := classifyAccess(models.AccessPartial, true, "restricted", models.CategoryCategorized)
	if !d.Proceed {
		t.Errorf("got %+v, want proceeding when categorized as restricted", d)
	}
}

func TestClassifyAccess_PartialCategorizedButNoLongerRestrictedSkips(t *testing.T) {
	d := classifyAccess(models.AccessPartial, true, "public", models.CategoryCategorized)
	if d.Proceed {
		t.Errorf("got %+v, want skip once category is no longer restricted", d)
	}
}

func TestNewDocumentDelta_NewAndErroredDocumentsIncluded(t *testing.T) {
	stored := map[string]models.DocumentRecord{
		"00000001": {Status: models.DocDownloaded},
		"00000002": {Status: models.DocError},
	}
	refs := []scraper.DocumentRef{
		{Number: "00000001"},
		{Number: "00000002"},
		{Number: "00000003"},
	}

	delta := newDocumentDelta(stored, refs)
	if len(delta) != 2 {
		t.Fatalf("got %d delta entries, want 2 (errored + brand new)", len(delta))
	}
	seen := map[string]bool{}
	for _, d := range delta {
		seen[d.Number] = true
	}
	if !seen["00000002"] || !seen["00000003"] {
		t.Errorf("got %v, want 00000002 and 00000003", delta)
	}
}

func TestMergeDocuments_PreservesExistingDownloadStatus(t *testing.T) {
	stored := map[string]models.DocumentRecord{
		"00000001": {Status: models.DocDownloaded, Type: "old-type"},
	}
	refs := []scraper.DocumentRef{
		{Number: "00000001", Type: "Sentença", Date: "01/01/2024"},
		{Number: "00000002", Type: "Petição", Date: "02/01/2024"},
	}
	fixed := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	merged := mergeDocuments(stored, refs, func() time.Time { return fixed })

	if merged["00000001"].Status != models.DocDownloaded {
		t.Errorf("expected existing download status to be preserved, got %q", merged["00000001"].Status)
	}
	if merged["00000001"].Type != "Sentença" {
		t.Errorf("expected type to refresh from the latest listing, got %q", merged["00000001"].Type)
	}
	if merged["00000002"].Status != models.DocNotDownloaded {
		t.Errorf("expected a brand new document to default to not_downloaded, got %q", merged["00000002"].Status)
	}
	if !merged["00000002"].LastChecked.Equal(fixed) {
		t.Errorf("expected LastChecked to be stamped with the injected clock")
	}
}

func TestSelectNextLink_PrefersMostRecentThenLexicographic(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	links := map[string]models.LinkRecord{
		"linkB": {LastChecked: newer},
		"linkA": {LastChecked: newer},
		"linkC": {LastChecked: older},
	}

	got, ok := selectNextLink(links, nil)
	if !ok || got != "linkA" {
		t.Errorf("got %q, ok=%v, want linkA (most recent, lexicographic tiebreak)", got, ok)
	}
}

func TestSelectNextLink_SkipsTriedLinks(t *testing.T) {
	links := map[string]models.LinkRecord{
		"linkA": {LastChecked: time.Now()},
		"linkB": {LastChecked: time.Now().Add(-time.Hour)},
	}
	got, ok := selectNextLink(links, map[string]bool{"linkA": true})
	if !ok || got != "linkB" {
		t.Errorf("got %q, ok=%v, want linkB once linkA is excluded", got, ok)
	}
}

func TestSelectNextLink_NoCandidatesReturnsFalse(t *testing.T) {
	_, ok := selectNextLink(map[string]models.LinkRecord{"only": {}}, map[string]bool{"only": true})
	if ok {
		t.Error("expected ok=false when every link has been tried")
	}
}
