// Package downloader fetches, normalizes, and archives the documents
// attached to one process: navigate, trigger the download, convert
// HTML fallbacks to PDF, rename, upload to the object store, and
// record history. Grounded on the same chromedp-session lifecycle as
// internal/browser, with the HTML-interpretation-free split applied
// again here for the one piece of this package that doesn't need a
// live browser — filename.go.
package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/browser"
	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/objectstore"
	"github.com/conectasei/core/internal/repository"
	"github.com/conectasei/core/internal/scraper"
)

var (
	errNoBrowserSession        = errors.New("no browser session available")
	errObjectStoreUnconfigured = errors.New("object store client not configured")
)

// Downloader runs the per-document download sequence for one process.
type Downloader struct {
	processes *repository.ProcessRepo
	tasks     *repository.DownloadTaskRepo
	history   *repository.DocumentHistoryRepo
	store     *objectstore.Client
	log       *logger.Logger
}

// New builds a Downloader.
func New(processes *repository.ProcessRepo, tasks *repository.DownloadTaskRepo, history *repository.DocumentHistoryRepo, store *objectstore.Client, log *logger.Logger) *Downloader {
	return &Downloader{processes: processes, tasks: tasks, history: history, store: store, log: log}
}

// documentsToDownload returns the requested subset, or, if none was
// requested, every document whose status is not_downloaded or error —
// the documented default.
func documentsToDownload(proc *models.Process, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	var all []string
	for number, doc := range proc.Documents {
		if doc.Status == models.DocNotDownloaded || doc.Status == models.DocError {
			all = append(all, number)
		}
	}
	return all
}

// Run downloads every requested (or default) document for proc inside
// sess, updating taskID's durable record and the process's document
// statuses as it goes. A single document's failure never aborts the
// rest; the method itself only returns an error if the browser session
// cannot be used at all.
func (d *Downloader) Run(ctx context.Context, sess *browser.Session, plugin scraper.Plugin, proc *models.Process, requested []string, taskID string) (map[string]models.DownloadResult, error) {
	if sess == nil || sess.Ctx == nil {
		return nil, apperrors.NewNavigationError(errNoBrowserSession, "open_process_for_download")
	}

	if err := plugin.OpenProcess(sess.Ctx, proc.BestCurrentLink); err != nil {
		return nil, err
	}

	numbers := documentsToDownload(proc, requested)
	results := make(map[string]models.DownloadResult, len(numbers))

	for _, number := range numbers {
		doc, known := proc.Documents[number]
		if known && doc.Status == models.DocDownloaded {
			// Idempotent: already downloaded, nothing to do.
			results[number] = models.DownloadResult{Uploaded: true}
			continue
		}

		result := d.downloadOne(sess.Ctx, plugin, proc, number, doc)
		results[number] = result

		newStatus := models.DocError
		if result.Uploaded {
			newStatus = models.DocDownloaded
		} else if result.Reason == reasonUploadFailed {
			newStatus = models.DocPartial
		}

		if err := d.processes.UpdateDocumentStatus(ctx, proc.ID, number, newStatus); err != nil {
			d.log.LogError(ctx, err, "failed to update document status after download attempt")
		}

		if err := d.tasks.RecordResult(ctx, taskID, number, result); err != nil {
			d.log.LogError(ctx, err, "failed to record download result")
		}
	}

	return results, nil
}

const (
	reasonUploadFailed  = "upload_failed"
	reasonDownloadFailed = "download_failed"
	reasonConvertFailed  = "html_to_pdf_conversion_failed"
)

// downloadOne performs steps 1-6 of the per-document sequence for one
// document. It never returns an error: every failure mode is captured
// in the returned DownloadResult's Reason so the caller can record
// history and move on to the next document.
func (d *Downloader) downloadOne(ctx context.Context, plugin scraper.Plugin, proc *models.Process, number string, doc models.DocumentRecord) models.DownloadResult {
	downloadStarted := time.Now()

	file, err := plugin.DownloadDocument(ctx, number)
	if err != nil {
		d.appendHistory(ctx, proc.ID, number, models.DocError, downloadStarted, downloadStarted, nil, nil, err)
		return models.DownloadResult{Uploaded: false, Reason: reasonDownloadFailed}
	}
	downloadFinished := time.Now()

	if isHTML(file.Filename) {
		converted, err := d.convertToPDF(ctx, file)
		if err != nil {
			d.appendHistory(ctx, proc.ID, number, models.DocError, downloadStarted, downloadFinished, nil, nil, err)
			return models.DownloadResult{Uploaded: false, Reason: reasonConvertFailed}
		}
		file = converted
	}

	finalName := renameForUpload(file.Filename, doc.Type)
	if finalName != file.Filename {
		renamedPath := filepath.Join(filepath.Dir(file.Path), finalName)
		if err := os.Rename(file.Path, renamedPath); err == nil {
			file.Path = renamedPath
			file.Filename = finalName
		}
	}

	path := objectstore.CanonicalPath(proc.TenantID, proc.ProcessNumber, number)

	body, readErr := os.ReadFile(file.Path)
	if readErr != nil {
		d.appendHistory(ctx, proc.ID, number, models.DocError, downloadStarted, downloadFinished, nil, nil, readErr)
		return models.DownloadResult{Uploaded: false, Reason: reasonDownloadFailed}
	}

	uploadStarted := time.Now()
	uploaded, uploadErr := d.uploadDocument(ctx, path, body)
	uploadFinished := time.Now()

	if uploadErr != nil || !uploaded {
		d.appendHistory(ctx, proc.ID, number, models.DocPartial, downloadStarted, downloadFinished, &uploadStarted, &uploadFinished, uploadErr)
		return models.DownloadResult{Uploaded: false, Reason: reasonUploadFailed}
	}

	d.appendHistory(ctx, proc.ID, number, models.DocDownloaded, downloadStarted, downloadFinished, &uploadStarted, &uploadFinished, nil)
	return models.DownloadResult{Uploaded: true}
}

func (d *Downloader) uploadDocument(ctx context.Context, path string, body []byte) (bool, error) {
	if d.store == nil {
		return false, apperrors.NewStorageError(errObjectStoreUnconfigured)
	}
	return d.store.Upload(ctx, path, body)
}

// convertToPDF renders an HTML fallback file to PDF in the same
// browser context used for navigation, via chromedp's page-to-PDF
// capability, then removes the original HTML file.
func (d *Downloader) convertToPDF(ctx context.Context, file scraper.DownloadedFile) (scraper.DownloadedFile, error) {
	fileURL := "file://" + file.Path
	var pdfBytes []byte

	err := chromedp.Run(ctx,
		chromedp.Navigate(fileURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBytes = buf
			return nil
		}),
	)
	if err != nil {
		return scraper.DownloadedFile{}, apperrors.NewPluginError(err, "html_to_pdf")
	}

	pdfPath := filepath.Join(filepath.Dir(file.Path), withPDFExt(filepath.Base(file.Filename)))
	if err := os.WriteFile(pdfPath, pdfBytes, 0o600); err != nil {
		return scraper.DownloadedFile{}, apperrors.NewInternalError(err)
	}
	_ = os.Remove(file.Path)

	return scraper.DownloadedFile{Path: pdfPath, Filename: withPDFExt(file.Filename)}, nil
}

func (d *Downloader) appendHistory(ctx context.Context, processID, documentNumber string, status models.DocumentStatus, downloadStarted, downloadFinished time.Time, uploadStarted, uploadFinished *time.Time, cause error) {
	details := map[string]any{
		"download_started":  downloadStarted,
		"download_finished": downloadFinished,
	}
	if uploadStarted != nil {
		details["upload_started"] = *uploadStarted
	}
	if uploadFinished != nil {
		details["upload_finished"] = *uploadFinished
	}

	end := downloadFinished
	if uploadFinished != nil {
		end = *uploadFinished
	}
	details["total_duration_ms"] = end.Sub(downloadStarted).Milliseconds()
	if cause != nil {
		details["error"] = cause.Error()
	}

	h := &models.DocumentHistory{
		ProcessID:      processID,
		DocumentNumber: documentNumber,
		Action:         "download",
		NewStatus:      status,
		Timestamp:      end,
		Details:        details,
	}
	if err := d.history.Append(ctx, h); err != nil {
		d.log.LogError(ctx, err, "failed to append document history")
	}
}
