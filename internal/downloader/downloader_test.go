package downloader

import (
	"sort"
	"testing"

	"github.com/conectasei/core/internal/models"
)

func TestDocumentsToDownload_DefaultsToNotDownloadedAndError(t *testing.T) {
	proc := &models.Process{
		Documents: map[string]models.DocumentRecord{
			"00000001": {Status: models.DocNotDownloaded},
			"00000002": {Status: models.DocDownloaded},
			"00000003": {Status: models.DocError},
			"00000004": {Status: models.DocPartial},
		},
	}

	got := documentsToDownload(proc, nil)
	sort.Strings(got)

	want := []string{"00000001", "00000003"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestDocumentsToDownload_RespectsExplicitRequest(t *testing.T) {
	proc := &models.Process{
		Documents: map[string]models.DocumentRecord{
			"00000001": {Status: models.DocDownloaded},
		},
	}

	got := documentsToDownload(proc, []string{"00000001"})
	if len(got) != 1 || got[0] != "00000001" {
		t.Errorf("got %v, want explicit request to be honored verbatim", got)
	}
}
