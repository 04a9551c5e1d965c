package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/models"
)

// ProcessRepo is typed access to the processes table. Links and
// documents are opaque JSONB at this boundary — callers deserialize
// into models.LinkRecord / models.DocumentRecord, never filter on
// sub-fields here (see SPEC_FULL.md §9).
type ProcessRepo struct {
	db *DB
}

func NewProcessRepo(db *DB) *ProcessRepo {
	return &ProcessRepo{db: db}
}

// KnownNumbers returns the set of process numbers already on file for
// a tenant, keyed by process number, for Phase A's left-outer-join
// classification of "new" vs "known".
func (r *ProcessRepo) KnownNumbers(ctx context.Context, tenantID string) (map[string]bool, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT process_number FROM processes WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "list known process numbers")
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, apperrors.NewPersistenceError(err, "scan process number")
		}
		known[number] = true
	}
	return known, rows.Err()
}

// GetByNumber loads one tenant's process by its process number, or
// nil (no error) if it doesn't exist yet.
func (r *ProcessRepo) GetByNumber(ctx context.Context, tenantID, processNumber string) (*models.Process, error) {
	return r.getByNumber(ctx, r.db.Pool, tenantID, processNumber)
}

func (r *ProcessRepo) getByNumber(ctx context.Context, q querier, tenantID, processNumber string) (*models.Process, error) {
	row := q.QueryRow(ctx, `
		SELECT id, tenant_id, process_number, links, documents, access_type,
		       best_current_link, category, category_status, authority, nickname,
		       no_valid_links, last_updated, created_at, updated_at
		FROM processes WHERE tenant_id = $1 AND process_number = $2`, tenantID, processNumber)

	p, err := scanProcess(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get process")
	}
	return p, nil
}

func scanProcess(row pgx.Row) (*models.Process, error) {
	var p models.Process
	var linksRaw, docsRaw []byte
	err := row.Scan(&p.ID, &p.TenantID, &p.ProcessNumber, &linksRaw, &docsRaw, &p.AccessType,
		&p.BestCurrentLink, &p.Category, &p.CategoryStatus, &p.Authority, &p.Nickname,
		&p.NoValidLinks, &p.LastUpdated, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Links = map[string]models.LinkRecord{}
	p.Documents = map[string]models.DocumentRecord{}
	if len(linksRaw) > 0 {
		if err := json.Unmarshal(linksRaw, &p.Links); err != nil {
			return nil, err
		}
	}
	if len(docsRaw) > 0 {
		if err := json.Unmarshal(docsRaw, &p.Documents); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Upsert inserts or updates one process in its own transaction,
// bounding the blast radius of a single process's failure to itself.
func (r *ProcessRepo) Upsert(ctx context.Context, p *models.Process) error {
	return r.db.WithTx(ctx, func(q querier) error {
		return r.upsert(ctx, q, p)
	})
}

func (r *ProcessRepo) upsert(ctx context.Context, q querier, p *models.Process) error {
	linksRaw, err := json.Marshal(p.Links)
	if err != nil {
		return apperrors.NewPersistenceError(err, "marshal links")
	}
	docsRaw, err := json.Marshal(p.Documents)
	if err != nil {
		return apperrors.NewPersistenceError(err, "marshal documents")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	_, err = q.Exec(ctx, `
		INSERT INTO processes (id, tenant_id, process_number, links, documents, access_type,
		                        best_current_link, category, category_status, authority, nickname,
		                        no_valid_links, last_updated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (tenant_id, process_number) DO UPDATE SET
		  links = EXCLUDED.links,
		  documents = EXCLUDED.documents,
		  access_type = EXCLUDED.access_type,
		  best_current_link = EXCLUDED.best_current_link,
		  category = EXCLUDED.category,
		  category_status = EXCLUDED.category_status,
		  authority = EXCLUDED.authority,
		  nickname = EXCLUDED.nickname,
		  no_valid_links = EXCLUDED.no_valid_links,
		  last_updated = EXCLUDED.last_updated,
		  updated_at = NOW()`,
		p.ID, p.TenantID, p.ProcessNumber, linksRaw, docsRaw, p.AccessType,
		p.BestCurrentLink, p.Category, p.CategoryStatus, p.Authority, p.Nickname,
		p.NoValidLinks, p.LastUpdated)
	if err != nil {
		return apperrors.NewPersistenceError(err, "upsert process")
	}
	return nil
}

// Get loads a process by id.
func (r *ProcessRepo) Get(ctx context.Context, processID string) (*models.Process, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, process_number, links, documents, access_type,
		       best_current_link, category, category_status, authority, nickname,
		       no_valid_links, last_updated, created_at, updated_at
		FROM processes WHERE id = $1`, processID)

	p, err := scanProcess(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("process")
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(err, "get process by id")
	}
	return p, nil
}

// UpdateDocumentStatus sets a single document's status within a
// process's documents map, used by the downloader after each upload
// attempt. It re-reads and re-writes under the same transaction to
// avoid clobbering concurrent extractor merges.
func (r *ProcessRepo) UpdateDocumentStatus(ctx context.Context, processID, documentNumber string, status models.DocumentStatus) error {
	return r.db.WithTx(ctx, func(q querier) error {
		row := q.QueryRow(ctx, `SELECT tenant_id, process_number, documents FROM processes WHERE id = $1 FOR UPDATE`, processID)

		var tenantID, processNumber string
		var docsRaw []byte
		if err := row.Scan(&tenantID, &processNumber, &docsRaw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFoundError("process")
			}
			return apperrors.NewPersistenceError(err, "lock process for document update")
		}

		docs := map[string]models.DocumentRecord{}
		if len(docsRaw) > 0 {
			if err := json.Unmarshal(docsRaw, &docs); err != nil {
				return apperrors.NewPersistenceError(err, "unmarshal documents")
			}
		}

		doc := docs[documentNumber]
		doc.Status = status
		docs[documentNumber] = doc

		newRaw, err := json.Marshal(docs)
		if err != nil {
			return apperrors.NewPersistenceError(err, "marshal documents")
		}

		_, err = q.Exec(ctx, `UPDATE processes SET documents = $1, updated_at = NOW() WHERE id = $2`, newRaw, processID)
		if err != nil {
			return apperrors.NewPersistenceError(err, "update document status")
		}
		return nil
	})
}
