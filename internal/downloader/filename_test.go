package downloader

import "testing"

func TestSanitizeDocumentType(t *testing.T) {
	cases := map[string]string{
		"Sentença":          "Sentença",
		"Despacho/Decisão":  "DespachoDecisão",
		"  Petição  ":       "Petição",
		"Ata<>:\"|?*":       "Ata",
	}
	for in, want := range cases {
		if got := sanitizeDocumentType(in); got != want {
			t.Errorf("sanitizeDocumentType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsBareDocumentNumber(t *testing.T) {
	cases := map[string]bool{
		"12345678.pdf":          true,
		"12345678":               true,
		"Sentenca_12345678.pdf": false,
		"1234.pdf":               false,
	}
	for in, want := range cases {
		if got := isBareDocumentNumber(in); got != want {
			t.Errorf("isBareDocumentNumber(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRenameForUpload(t *testing.T) {
	got := renameForUpload("12345678.pdf", "Sentença")
	want := "Sentença_12345678.pdf"
	if got != want {
		t.Errorf("renameForUpload = %q, want %q", got, want)
	}

	// Already descriptive filenames pass through unchanged.
	got = renameForUpload("Despacho_12345678.pdf", "Despacho")
	if got != "Despacho_12345678.pdf" {
		t.Errorf("renameForUpload should not alter a non-bare filename, got %q", got)
	}

	// An empty/unsanitizable type leaves the filename untouched.
	got = renameForUpload("12345678.pdf", "/\\")
	if got != "12345678.pdf" {
		t.Errorf("renameForUpload with empty sanitized type should pass through, got %q", got)
	}
}

func TestIsHTML(t *testing.T) {
	if !isHTML("page.html") || !isHTML("PAGE.HTM") {
		t.Error("expected .html/.htm to be detected regardless of case")
	}
	if isHTML("document.pdf") {
		t.Error("expected .pdf to not be detected as HTML")
	}
}

func TestWithPDFExt(t *testing.T) {
	if got := withPDFExt("page.html"); got != "page.pdf" {
		t.Errorf("withPDFExt(page.html) = %q, want page.pdf", got)
	}
}
