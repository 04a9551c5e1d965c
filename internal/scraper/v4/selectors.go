package v4

// Selectors is the declarative table of CSS selectors one v4-family
// plugin variant plugs into FamilyDefaults. Each version override
// replaces only the entries that actually changed between releases.
type Selectors struct {
	LoginEmailField    string
	LoginPasswordField string
	LoginSubmitButton  string
	LoginErrorBanner   string

	ProcessRow        string
	ProcessRowNumber  string
	ProcessRowLinkID  string

	AccessDeniedBanner  string
	AccessPartialBanner string
	AuthorityField      string

	DocumentRow        string
	DocumentNumberCell string
	DocumentTypeCell   string
	DocumentDateCell   string
	DocumentSignerCell string
	DocumentDownloadLink string
}

// defaultSelectors is the 4.0.0-era selector table, carried forward
// unchanged by every version that does not override a given field.
var defaultSelectors = Selectors{
	LoginEmailField:    `input[name="email"]`,
	LoginPasswordField: `input[name="password"]`,
	LoginSubmitButton:  `button[type="submit"]`,
	LoginErrorBanner:   `.alert-danger`,

	ProcessRow:       `table#processos tbody tr`,
	ProcessRowNumber: `td.numero-processo`,
	ProcessRowLinkID: `a.abrir-processo`,

	AccessDeniedBanner:  `.acesso-negado`,
	AccessPartialBanner: `.acesso-parcial`,
	AuthorityField:      `.orgao-julgador`,

	DocumentRow:          `table#documentos tbody tr`,
	DocumentNumberCell:   `td.numero-documento`,
	DocumentTypeCell:     `td.tipo-documento`,
	DocumentDateCell:     `td.data-documento`,
	DocumentSignerCell:   `td.assinante`,
	DocumentDownloadLink: `a.baixar-documento`,
}
