// Package v4 implements the scraper.Plugin contract for the upstream
// system's 4.x release family. FamilyDefaults carries the flow shared
// by every 4.x release; version-specific types (Plugin420) embed it
// and override only the operations that changed. The HTML-interpretation
// logic itself lives in parse.go, kept free of chromedp so it can be
// tested against static fixtures.
package v4

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/scraper"
)

const (
	waitAfterLogin          = 2 * time.Second
	waitAfterDownloadClick  = 500 * time.Millisecond
	downloadCompleteTimeout = 30 * time.Second
)

// FamilyDefaults is the common 4.x implementation of scraper.Plugin.
// Concrete versions embed this and override selectors/methods that
// diverge — composition, not inheritance.
type FamilyDefaults struct {
	BaseURL   string
	Selectors Selectors
}

// NewFamilyDefaults builds a 4.x-family plugin pointed at baseURL with
// the baseline selector table.
func NewFamilyDefaults(baseURL string) FamilyDefaults {
	return FamilyDefaults{BaseURL: baseURL, Selectors: defaultSelectors}
}

func (f FamilyDefaults) outerHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	})); err != nil {
		return "", apperrors.NewNavigationError(err, "capture page html")
	}
	return html, nil
}

func (f FamilyDefaults) parseDoc(ctx context.Context) (*goquery.Document, error) {
	html, err := f.outerHTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewPluginError(err, "parse page html")
	}
	return doc, nil
}

// DetectVersion is advisory only; it looks for a footer element
// carrying a release string and never blocks a pipeline run.
func (f FamilyDefaults) DetectVersion(ctx context.Context) (string, error) {
	doc, err := f.parseDoc(ctx)
	if err != nil {
		return "", err
	}
	return parseDetectedVersion(doc), nil
}

func (f FamilyDefaults) Login(ctx context.Context, creds models.Credentials) error {
	err := chromedp.Run(ctx,
		chromedp.Navigate(f.BaseURL+"/login"),
		chromedp.WaitVisible(f.Selectors.LoginEmailField, chromedp.ByQuery),
		chromedp.SendKeys(f.Selectors.LoginEmailField, creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(f.Selectors.LoginPasswordField, creds.Password, chromedp.ByQuery),
		chromedp.Click(f.Selectors.LoginSubmitButton, chromedp.ByQuery),
		chromedp.Sleep(waitAfterLogin),
	)
	if err != nil {
		return apperrors.NewNavigationError(err, "login")
	}

	doc, err := f.parseDoc(ctx)
	if err != nil {
		return err
	}
	if message := parseLoginError(doc, f.Selectors); message != "" {
		return apperrors.NewAuthError(message, false)
	}
	return nil
}

func (f FamilyDefaults) ListProcesses(ctx context.Context) ([]scraper.ProcessRef, error) {
	doc, err := f.parseDoc(ctx)
	if err != nil {
		return nil, err
	}
	return parseProcessRefs(doc, f.Selectors), nil
}

func (f FamilyDefaults) OpenProcess(ctx context.Context, linkID string) error {
	url := fmt.Sprintf("%s/processos/%s", f.BaseURL, linkID)
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(f.Selectors.DocumentRow, chromedp.ByQuery),
	)
	if err != nil {
		return apperrors.NewNavigationError(err, "open process")
	}
	return nil
}

func (f FamilyDefaults) ClassifyAccess(ctx context.Context) (models.AccessType, error) {
	doc, err := f.parseDoc(ctx)
	if err != nil {
		return "", err
	}
	return parseAccessType(doc, f.Selectors), nil
}

func (f FamilyDefaults) ExtractAuthority(ctx context.Context) (string, error) {
	doc, err := f.parseDoc(ctx)
	if err != nil {
		return "", err
	}
	return parseAuthority(doc, f.Selectors), nil
}

func (f FamilyDefaults) ListDocuments(ctx context.Context) ([]scraper.DocumentRef, error) {
	doc, err := f.parseDoc(ctx)
	if err != nil {
		return nil, err
	}
	return parseDocumentRefs(doc, f.Selectors), nil
}

// DownloadDocument dismisses any pending dialog, points the browser's
// download behavior at the directory scraper.DownloadDirFromContext
// was given (set by the browser session that owns ctx), clicks the
// document's download handle, and blocks for the matching
// page.EventDownloadProgress "completed" event.
func (f FamilyDefaults) DownloadDocument(ctx context.Context, documentNumber string) (scraper.DownloadedFile, error) {
	dir, ok := scraper.DownloadDirFromContext(ctx)
	if !ok {
		return scraper.DownloadedFile{}, apperrors.NewInternalError(
			fmt.Errorf("download_document called without a session-scoped download directory in context"))
	}

	selector := f.Selectors.DocumentRow + ` td.numero-documento:contains("` + documentNumber + `") ~ td ` + f.Selectors.DocumentDownloadLink

	var guid string
	var filename string
	done := make(chan struct{})

	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *browser.EventDownloadWillBegin:
			guid = e.GUID
			filename = e.SuggestedFilename
		case *browser.EventDownloadProgress:
			if e.GUID == guid && e.State == browser.DownloadProgressStateCompleted {
				select {
				case <-done:
				default:
					close(done)
				}
			}
		}
	})

	err := chromedp.Run(ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).WithDownloadPath(dir),
		dismissJavaScriptDialogs(),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(waitAfterDownloadClick),
	)
	if err != nil {
		return scraper.DownloadedFile{}, apperrors.NewNavigationError(err, "trigger document download")
	}

	select {
	case <-done:
	case <-time.After(downloadCompleteTimeout):
		return scraper.DownloadedFile{}, apperrors.NewNavigationError(
			fmt.Errorf("timed out waiting for download of document %s", documentNumber), "await document download")
	case <-ctx.Done():
		return scraper.DownloadedFile{}, ctx.Err()
	}

	if filename == "" {
		filename = documentNumber
	}
	return scraper.DownloadedFile{Path: filepath.Join(dir, guid), Filename: filename}, nil
}

// dismissJavaScriptDialogs auto-accepts any dialog the page opens
// during navigation, preventing the hangs the upstream system's
// occasional confirm() popups would otherwise cause.
func dismissJavaScriptDialogs() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
				go chromedp.Run(ctx, page.HandleJavaScriptDialog(true))
			}
		})
		return nil
	})
}
