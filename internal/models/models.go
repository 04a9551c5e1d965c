// Package models holds the plain data types shared by the extraction
// pipeline's repositories and core components.
package models

import (
	"regexp"
	"time"
)

// ProcessNumberPattern matches the canonical process-number format
// NNNNN.NNNNNN/YYYY-DD.
var ProcessNumberPattern = regexp.MustCompile(`^\d{5}\.\d{6}/\d{4}-\d{2}$`)

// DocumentNumberPattern matches the canonical 8-digit document number.
var DocumentNumberPattern = regexp.MustCompile(`^\d{8}$`)

// AccessType is the access level the plugin classified a process link as.
type AccessType string

const (
	AccessIntegral AccessType = "integral"
	AccessPartial  AccessType = "partial"
	AccessError    AccessType = "error"
)

// CategoryStatus tracks whether a process's manual-review category has
// been confirmed.
type CategoryStatus string

const (
	CategoryPending    CategoryStatus = "pending"
	CategoryCategorized CategoryStatus = "categorized"
)

// DocumentStatus is the lifecycle state of one document's extraction.
type DocumentStatus string

const (
	DocNotDownloaded DocumentStatus = "not_downloaded"
	DocDownloaded    DocumentStatus = "downloaded"
	DocError         DocumentStatus = "error"
	DocPartial       DocumentStatus = "partial"
)

// LinkStatus is the health of one known access link.
type LinkStatus string

const (
	LinkActive   LinkStatus = "active"
	LinkInactive LinkStatus = "inactive"
)

// TaskStatus is the lifecycle state of an ExtractionTask or DownloadTask.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ScheduleKind distinguishes interval-based from cron-based schedules.
type ScheduleKind string

const (
	ScheduleInterval ScheduleKind = "interval"
	ScheduleCron     ScheduleKind = "cron"
)

// Tenant is one administrative boundary with its own upstream URL,
// credentials, and process corpus.
type Tenant struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	UpstreamURL          string            `json:"upstream_url"`
	ScraperVersion       string            `json:"scraper_version"`
	IsActive             bool              `json:"is_active"`
	EncryptedCredentials []byte            `json:"-"`
	ExtraMetadata        map[string]any    `json:"extra_metadata,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Credentials are the plaintext upstream-system login credentials.
// Exists only in memory for the duration of one extraction/download run.
type Credentials struct {
	Email    string
	Password string
}

// LinkHistoryEntry is one append-only check recorded against a link.
type LinkHistoryEntry struct {
	CheckedAt  time.Time  `json:"checked_at"`
	Status     LinkStatus `json:"status"`
	AccessType AccessType `json:"access_type"`
}

// LinkRecord is one known upstream URL granting some access to a process.
type LinkRecord struct {
	Status      LinkStatus         `json:"status"`
	AccessType  AccessType         `json:"access_type"`
	LastChecked time.Time          `json:"last_checked"`
	History     []LinkHistoryEntry `json:"history"`
}

// DocumentRecord is one attachment within a process.
type DocumentRecord struct {
	Type        string         `json:"type"`
	Date        string         `json:"date"` // dd/mm/yyyy, as served upstream
	Status      DocumentStatus `json:"status"`
	LastChecked time.Time      `json:"last_checked"`
	Signer      string         `json:"signer,omitempty"`
}

// Process is a unit of record in the upstream system.
type Process struct {
	ID              string                    `json:"id"`
	TenantID        string                    `json:"tenant_id"`
	ProcessNumber   string                    `json:"process_number"`
	Links           map[string]LinkRecord     `json:"links"`
	Documents       map[string]DocumentRecord `json:"documents"`
	AccessType      AccessType                `json:"access_type"`
	BestCurrentLink string                    `json:"best_current_link"`
	Category        string                    `json:"category"`
	CategoryStatus  CategoryStatus            `json:"category_status"`
	Authority       string                    `json:"authority"`
	Nickname        string                    `json:"nickname"`
	NoValidLinks    bool                      `json:"no_valid_links"`
	LastUpdated     time.Time                 `json:"last_updated"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// ExtractionSummary is the result_summary recorded on a completed
// ExtractionTask.
type ExtractionSummary struct {
	Discovered      int `json:"discovered"`
	NewProcesses    int `json:"new_processes"`
	UpdatedProcesses int `json:"updated_processes"`
	NewDocuments    int `json:"new_documents"`
	Failures        int `json:"failures"`
}

// ExtractionTask is one durable record of an extraction invocation.
type ExtractionTask struct {
	ID           string             `json:"id"`
	TenantID     string             `json:"tenant_id"`
	Status       TaskStatus         `json:"status"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
	Progress     int                `json:"progress"`
	ResultSummary *ExtractionSummary `json:"result_summary,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

// DownloadResult is the per-document outcome of a download task.
type DownloadResult struct {
	Uploaded bool   `json:"uploaded"`
	Reason   string `json:"reason,omitempty"`
}

// DownloadTask is one durable record of a download invocation.
type DownloadTask struct {
	ID                 string                    `json:"id"`
	ProcessID          string                    `json:"process_id"`
	Status             TaskStatus                `json:"status"`
	RequestedDocuments []string                  `json:"requested_documents"` // nil/empty means ALL
	Results            map[string]DownloadResult `json:"results"`
	StartedAt          *time.Time                `json:"started_at,omitempty"`
	FinishedAt         *time.Time                `json:"finished_at,omitempty"`
}

// DocumentHistory is an append-only audit row of one download attempt.
type DocumentHistory struct {
	ID             string         `json:"id"`
	ProcessID      string         `json:"process_id"`
	DocumentNumber string         `json:"document_number"`
	Action         string         `json:"action"`
	NewStatus      DocumentStatus `json:"new_status"`
	Timestamp      time.Time      `json:"timestamp"`
	Details        map[string]any `json:"details,omitempty"`
}

// ExtractionSchedule is the zero-or-one cron/interval schedule for a tenant.
type ExtractionSchedule struct {
	TenantID   string       `json:"tenant_id"`
	Kind       ScheduleKind `json:"kind"`
	Expression string       `json:"expression"`
	IsActive   bool         `json:"is_active"`
}

// SystemConfig is one key/value row in the global config bag.
type SystemConfig struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
