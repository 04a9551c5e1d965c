// Package extractor runs the two-phase process discovery pipeline: a
// single-threaded Phase A that logs in and lists every process the
// tenant's upstream account can see, followed by a Phase B bounded
// worker fan-out that classifies access, extracts documents, and
// upserts each process independently, with a typical bound of 5
// concurrent workers.
package extractor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/browser"
	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/notify"
	"github.com/conectasei/core/internal/scraper"
)

// ProcessStore is the subset of repository.ProcessRepo the extractor
// needs, kept as an interface so tests exercise the classification and
// merge algorithm against in-memory fakes instead of a live database.
type ProcessStore interface {
	GetByNumber(ctx context.Context, tenantID, processNumber string) (*models.Process, error)
	KnownNumbers(ctx context.Context, tenantID string) (map[string]bool, error)
	Upsert(ctx context.Context, p *models.Process) error
}

// TenantStore is the subset of repository.TenantRepo the extractor needs.
type TenantStore interface {
	GetByID(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// TaskRegistry is the subset of tasks.Registry the extractor drives
// through the ExtractionTask state machine.
type TaskRegistry interface {
	MarkRunning(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	Complete(ctx context.Context, id uuid.UUID, summary models.ExtractionSummary) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
}

// CredentialDecrypter is the subset of vault.Vault the extractor needs.
type CredentialDecrypter interface {
	Decrypt(ciphertext []byte) (models.Credentials, error)
}

// PluginResolver is the subset of scraper.Registry the extractor needs.
type PluginResolver interface {
	Resolve(version, baseURL string) (scraper.Plugin, error)
}

// SessionAcquirer is the subset of browser.Pool the extractor needs.
type SessionAcquirer interface {
	Acquire(ctx context.Context, plugin scraper.Plugin, creds models.Credentials) (*browser.Session, error)
}

// Extractor runs one tenant's full process-discovery pipeline per Run call.
type Extractor struct {
	processes   ProcessStore
	tenants     TenantStore
	tasks       TaskRegistry
	plugins     PluginResolver
	sessions    SessionAcquirer
	decrypter   CredentialDecrypter
	notifier    *notify.Dispatcher
	workerLimit int
	log         *logger.Logger
}

// New builds an Extractor. workerLimit bounds Phase B's fan-out; the
// documented typical/default is 5.
func New(processes ProcessStore, tenants TenantStore, tasks TaskRegistry, plugins PluginResolver, sessions SessionAcquirer, decrypter CredentialDecrypter, notifier *notify.Dispatcher, workerLimit int, log *logger.Logger) *Extractor {
	if workerLimit <= 0 {
		workerLimit = 5
	}
	return &Extractor{
		processes: processes, tenants: tenants, tasks: tasks,
		plugins: plugins, sessions: sessions, decrypter: decrypter,
		notifier: notifier, workerLimit: workerLimit, log: log,
	}
}

// workItem is everything Phase B needs to process one process number.
// LinkIDs holds every link discovery found for this process in this
// run, in discovery order — a process can legitimately be listed
// under more than one link (e.g. a partial-access link and an
// integral-access link for the same number), and one worker must own
// all of them so it can pick a winner instead of two workers racing
// GetByNumber/Upsert against the same row.
type workItem struct {
	ProcessNumber string
	LinkIDs       []string
}

// groupByProcessNumber folds discovered refs into one workItem per
// distinct process number, preserving the order links were
// discovered in. This is what keeps a single process's candidate
// links — and its GetByNumber/merge/Upsert cycle — inside one Phase B
// worker instead of splitting them across two racing workers.
func groupByProcessNumber(refs []scraper.ProcessRef) []workItem {
	order := make([]string, 0, len(refs))
	byNumber := make(map[string]*workItem, len(refs))
	for _, ref := range refs {
		item, ok := byNumber[ref.ProcessNumber]
		if !ok {
			item = &workItem{ProcessNumber: ref.ProcessNumber}
			byNumber[ref.ProcessNumber] = item
			order = append(order, ref.ProcessNumber)
		}
		item.LinkIDs = append(item.LinkIDs, ref.LinkID)
	}
	items := make([]workItem, 0, len(order))
	for _, number := range order {
		items = append(items, *byNumber[number])
	}
	return items
}

// outcome is what one Phase B worker reports back for aggregation.
// skipped covers a process with no valid link left to open: it's
// durably upserted with NoValidLinks=true so an operator can still
// find it, but a disabled process is not a run failure, so it counts
// toward neither Failures nor NewProcesses/UpdatedProcesses.
type outcome struct {
	isNew           bool
	failed          bool
	skipped         bool
	pending         bool
	processNumber   string
	newDocsBySigner map[string][]string
}

// Run executes the full pipeline for tenantID under taskID, updating
// the task's durable state as it progresses. A pipeline-level fault
// (bad credentials, no plugin for the tenant's version, browser pool
// exhausted) transitions the task to failed and returns the error;
// per-process failures never do — they only show up in the summary.
func (e *Extractor) Run(ctx context.Context, tenantID string, taskID uuid.UUID) (models.ExtractionSummary, error) {
	var summary models.ExtractionSummary

	if err := e.tasks.MarkRunning(ctx, taskID); err != nil {
		return summary, err
	}

	tenant, err := e.tenants.GetByID(ctx, tenantID)
	if err != nil {
		e.fail(ctx, taskID, "resolve tenant: "+err.Error())
		return summary, err
	}
	if !tenant.IsActive {
		err := apperrors.NewConfigError("tenant is not active")
		e.fail(ctx, taskID, err.Error())
		return summary, err
	}

	creds, err := e.decrypter.Decrypt(tenant.EncryptedCredentials)
	if err != nil {
		e.fail(ctx, taskID, "decrypt credentials: "+err.Error())
		return summary, err
	}

	plugin, err := e.plugins.Resolve(tenant.ScraperVersion, tenant.UpstreamURL)
	if err != nil {
		e.fail(ctx, taskID, err.Error())
		return summary, err
	}

	sess, err := e.sessions.Acquire(ctx, plugin, creds)
	if err != nil {
		e.fail(ctx, taskID, "acquire browser session: "+err.Error())
		return summary, err
	}
	defer sess.Release()

	// Phase A: single-threaded discovery on the one logged-in page.
	refs, err := plugin.ListProcesses(sess.Ctx)
	if err != nil {
		e.fail(ctx, taskID, "list processes: "+err.Error())
		return summary, err
	}
	summary.Discovered = len(refs)

	known, err := e.processes.KnownNumbers(ctx, tenantID)
	if err != nil {
		e.fail(ctx, taskID, "load known process numbers: "+err.Error())
		return summary, err
	}

	// Phase B: bounded worker fan-out, one process per worker slot. Refs
	// are grouped by process number first so a process discovered under
	// several links is handled start-to-finish by a single worker.
	grouped := groupByProcessNumber(refs)
	items := make(chan workItem, len(grouped))
	for _, item := range grouped {
		items <- item
	}
	close(items)

	outcomes := make(chan outcome, len(grouped))
	var wg sync.WaitGroup
	for i := 0; i < e.workerLimit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				o := e.processOne(ctx, sess, plugin, tenantID, item, known[item.ProcessNumber])
				outcomes <- o
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	var pendingProcesses []string
	newDocsBySigner := map[string][]string{}
	processed := 0
	for o := range outcomes {
		processed++
		if o.skipped {
			// no valid link left to open — neither a failure nor a
			// process update, see the outcome.skipped doc comment.
		} else if o.failed {
			summary.Failures++
		} else if o.isNew {
			summary.NewProcesses++
		} else {
			summary.UpdatedProcesses++
		}
		if o.pending {
			pendingProcesses = append(pendingProcesses, o.processNumber)
		}
		for signer, docs := range o.newDocsBySigner {
			newDocsBySigner[signer] = append(newDocsBySigner[signer], docs...)
			summary.NewDocuments += len(docs)
		}
		if err := e.tasks.UpdateProgress(ctx, taskID, (processed*100)/maxInt(len(grouped), 1)); err != nil {
			e.log.LogError(ctx, err, "failed to update extraction progress")
		}
	}

	e.notifier.PendingCategorization(ctx, notify.PendingCategorizationEvent{
		TenantID:       tenantID,
		TaskID:         taskID.String(),
		ProcessNumbers: pendingProcesses,
	})
	e.notifier.NewDocuments(ctx, notify.NewDocumentsEvent{
		TenantID: tenantID,
		TaskID:   taskID.String(),
		BySigner: newDocsBySigner,
	})

	if err := e.tasks.Complete(ctx, taskID, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (e *Extractor) fail(ctx context.Context, taskID uuid.UUID, reason string) {
	if err := e.tasks.Fail(ctx, taskID, reason); err != nil {
		e.log.LogError(ctx, err, "failed to mark extraction task failed")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// processOne runs Phase B for a single process: every candidate link
// discovered this run is opened and classified, the best-access
// winner is selected (integral beats partial beats error, per the
// link policy), any known link is tried as a fallback if every
// candidate failed to navigate, and then access classification,
// document extraction, merge, and upsert proceed against the winner.
// It never returns an error — any failure is captured in the returned
// outcome so the caller's fan-out keeps going; a failure in one
// process never aborts the run.
func (e *Extractor) processOne(ctx context.Context, sess *browser.Session, plugin scraper.Plugin, tenantID string, item workItem, previouslySeen bool) outcome {
	existing, err := e.processes.GetByNumber(ctx, tenantID, item.ProcessNumber)
	if err != nil {
		e.log.LogError(ctx, err, "failed to load existing process")
		return outcome{failed: true, processNumber: item.ProcessNumber}
	}

	proc := existing
	if proc == nil {
		proc = &models.Process{
			TenantID:       tenantID,
			ProcessNumber:  item.ProcessNumber,
			Links:          map[string]models.LinkRecord{},
			Documents:      map[string]models.DocumentRecord{},
			CategoryStatus: models.CategoryPending,
		}
	}
	if proc.Links == nil {
		proc.Links = map[string]models.LinkRecord{}
	}
	if proc.Documents == nil {
		proc.Documents = map[string]models.DocumentRecord{}
	}

	tried := map[string]bool{}
	lastOpened := ""
	bestLink := ""
	var bestAccess models.AccessType
	haveBest := false

	for _, candidate := range item.LinkIDs {
		if _, known := proc.Links[candidate]; !known {
			proc.Links[candidate] = models.LinkRecord{Status: models.LinkActive}
		}
		tried[candidate] = true

		if err := plugin.OpenProcess(sess.Ctx, candidate); err != nil {
			e.deactivateLink(proc, candidate, err)
			continue
		}
		lastOpened = candidate

		at, err := plugin.ClassifyAccess(sess.Ctx)
		if err != nil {
			// A classification error is fatal to this process, not the run.
			e.log.LogError(ctx, err, "plugin classification failed for process "+item.ProcessNumber)
			return outcome{failed: true, processNumber: item.ProcessNumber}
		}
		e.recordLinkCheck(proc, candidate, at)

		if !haveBest || accessRank(at) > accessRank(bestAccess) {
			bestLink, bestAccess, haveBest = candidate, at, true
		}
	}

	// None of this run's discovered candidates opened — fall back to
	// any other previously known link before giving up on the process.
	for !haveBest {
		next, ok := selectNextLink(proc.Links, tried)
		if !ok {
			proc.NoValidLinks = true
			if err := e.processes.Upsert(ctx, proc); err != nil {
				e.log.LogError(ctx, err, "failed to upsert process with no valid links")
			}
			return outcome{skipped: true, processNumber: item.ProcessNumber}
		}
		tried[next] = true

		if err := plugin.OpenProcess(sess.Ctx, next); err != nil {
			e.deactivateLink(proc, next, err)
			continue
		}
		lastOpened = next

		at, err := plugin.ClassifyAccess(sess.Ctx)
		if err != nil {
			e.log.LogError(ctx, err, "plugin classification failed for process "+item.ProcessNumber)
			return outcome{failed: true, processNumber: item.ProcessNumber}
		}
		e.recordLinkCheck(proc, next, at)
		bestLink, bestAccess, haveBest = next, at, true
	}

	// The browser may be sitting on a worse candidate that was checked
	// after the winner — re-open the winner so document extraction
	// reads from the link we're actually recording as current.
	if lastOpened != bestLink {
		if err := plugin.OpenProcess(sess.Ctx, bestLink); err != nil {
			e.log.LogError(ctx, err, "failed to re-open winning link for process "+item.ProcessNumber)
			return outcome{failed: true, processNumber: item.ProcessNumber}
		}
	}

	linkID := bestLink
	accessType := bestAccess

	decision := classifyAccess(accessType, previouslySeen, proc.Category, proc.CategoryStatus)
	proc.AccessType = accessType
	proc.Category = decision.Category
	proc.CategoryStatus = decision.CategoryStatus
	proc.BestCurrentLink = linkID
	proc.NoValidLinks = false
	proc.LastUpdated = time.Now()

	var newDocsBySigner map[string][]string
	if decision.Proceed {
		if proc.Authority == "" {
			if authority, err := plugin.ExtractAuthority(sess.Ctx); err == nil {
				proc.Authority = authority
			}
		}

		docRefs, err := plugin.ListDocuments(sess.Ctx)
		if err != nil {
			e.log.LogError(ctx, err, "plugin document listing failed for process "+item.ProcessNumber)
			return outcome{failed: true, processNumber: item.ProcessNumber}
		}

		delta := newDocumentDelta(proc.Documents, docRefs)
		proc.Documents = mergeDocuments(proc.Documents, docRefs, time.Now)

		if len(delta) > 0 {
			newDocsBySigner = map[string][]string{}
			for _, d := range delta {
				signer := d.Signer
				if signer == "" {
					signer = "unknown"
				}
				newDocsBySigner[signer] = append(newDocsBySigner[signer], d.Number)
			}
		}
	}

	if err := e.processes.Upsert(ctx, proc); err != nil {
		e.log.LogError(ctx, err, "failed to upsert process "+item.ProcessNumber)
		return outcome{failed: true, processNumber: item.ProcessNumber}
	}

	return outcome{
		isNew:           !previouslySeen,
		pending:         decision.CategoryStatus == models.CategoryPending,
		processNumber:   item.ProcessNumber,
		newDocsBySigner: newDocsBySigner,
	}
}

func (e *Extractor) deactivateLink(proc *models.Process, linkID string, cause error) {
	link := proc.Links[linkID]
	link.Status = models.LinkInactive
	link.LastChecked = time.Now()
	link.History = append(link.History, models.LinkHistoryEntry{
		CheckedAt: link.LastChecked, Status: link.Status, AccessType: models.AccessError,
	})
	proc.Links[linkID] = link
	e.log.Warn("deactivated link after navigation failure", "link_id", linkID, "error", cause.Error())
}

// recordLinkCheck appends a history entry for a link that was
// successfully opened and classified this run.
func (e *Extractor) recordLinkCheck(proc *models.Process, linkID string, accessType models.AccessType) {
	link := proc.Links[linkID]
	link.Status = models.LinkActive
	link.AccessType = accessType
	link.LastChecked = time.Now()
	link.History = append(link.History, models.LinkHistoryEntry{
		CheckedAt: link.LastChecked, Status: link.Status, AccessType: accessType,
	})
	proc.Links[linkID] = link
}

// accessRank orders access types for link-selection when a process is
// discovered under more than one link this run: integral access beats
// partial, which beats anything else, per the link policy.
func accessRank(at models.AccessType) int {
	switch at {
	case models.AccessIntegral:
		return 2
	case models.AccessPartial:
		return 1
	default:
		return 0
	}
}
