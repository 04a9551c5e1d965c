package extractor

import (
	"sort"
	"time"

	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/scraper"
)

// accessDecision is the outcome of applying the access-type/category
// state machine to one process's classification result.
type accessDecision struct {
	Category       string
	CategoryStatus models.CategoryStatus
	Proceed        bool
}

// classifyAccess applies the policy table: integral access is always
// sufficient; partial access only proceeds once a human has already
// categorized the process as restricted, and stops proceeding the
// moment that categorization is edited away.
func classifyAccess(accessType models.AccessType, previouslySeen bool, prevCategory string, prevCategoryStatus models.CategoryStatus) accessDecision {
	if accessType == models.AccessIntegral {
		return accessDecision{Category: "restricted", CategoryStatus: models.CategoryCategorized, Proceed: true}
	}

	if accessType == models.AccessPartial {
		if !previouslySeen || prevCategoryStatus != models.CategoryCategorized {
			return accessDecision{Category: prevCategory, CategoryStatus: models.CategoryPending, Proceed: false}
		}
		if prevCategory == "restricted" {
			return accessDecision{Category: prevCategory, CategoryStatus: prevCategoryStatus, Proceed: true}
		}
		// category_status is categorized but category is no longer
		// "restricted" — a later manual edit revoked proceeding.
		return accessDecision{Category: prevCategory, CategoryStatus: prevCategoryStatus, Proceed: false}
	}

	// access_type == error: nothing to classify, caller handles link retry.
	return accessDecision{Category: prevCategory, CategoryStatus: prevCategoryStatus, Proceed: false}
}

// newDocumentDelta returns the subset of refs that represent a new
// document: not present in stored, or present with status=error.
func newDocumentDelta(stored map[string]models.DocumentRecord, refs []scraper.DocumentRef) []scraper.DocumentRef {
	var delta []scraper.DocumentRef
	for _, ref := range refs {
		existing, known := stored[ref.Number]
		if !known || existing.Status == models.DocError {
			delta = append(delta, ref)
		}
	}
	return delta
}

// mergeDocuments folds freshly listed document refs into the stored
// documents map, preserving any existing entry's download status and
// only adding fresh not_downloaded entries for genuinely new numbers.
func mergeDocuments(stored map[string]models.DocumentRecord, refs []scraper.DocumentRef, checkedAt timeNow) map[string]models.DocumentRecord {
	merged := make(map[string]models.DocumentRecord, len(stored))
	for number, rec := range stored {
		merged[number] = rec
	}
	for _, ref := range refs {
		rec, known := merged[ref.Number]
		if !known {
			rec = models.DocumentRecord{Status: models.DocNotDownloaded}
		}
		rec.Type = ref.Type
		rec.Date = ref.Date
		rec.Signer = ref.Signer
		rec.LastChecked = checkedAt()
		merged[ref.Number] = rec
	}
	return merged
}

// timeNow lets tests pin the clock that mergeDocuments stamps
// LastChecked with, without this package depending on a fake-clock
// library the corpus never reaches for.
type timeNow = func() time.Time

// selectNextLink picks the next link to try for a process: among the
// known links not already tried this run, the one whose LastChecked is
// most recent, ties broken lexicographically by link id. Link status is
// not consulted, and LastChecked is stamped by failed checks as well as
// successful ones, so the order is by most recent check rather than by
// most recent success. Returns ok=false if every known link was tried.
func selectNextLink(links map[string]models.LinkRecord, tried map[string]bool) (string, bool) {
	var candidates []string
	for linkID := range links {
		if tried[linkID] {
			continue
		}
		candidates = append(candidates, linkID)
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := links[candidates[i]], links[candidates[j]]
		if !a.LastChecked.Equal(b.LastChecked) {
			return a.LastChecked.After(b.LastChecked)
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], true
}
