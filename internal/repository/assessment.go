// Package repository handles assessment persistence in Postgres.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/onco-tier-server/internal/domain"
)

// AssessmentRepository persists completed assessments. It implements
// domain.AssessmentRepository.
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// Save inserts a completed assessment.
func (r *AssessmentRepository) Save(ctx context.Context, rec *domain.AssessmentRecord) error {
	query := `
		INSERT INTO assessments (
			id, gene, variant, tumor_type, tier, sublevel, justification, narrative, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		strings.ToUpper(rec.Gene),
		rec.Variant,
		rec.TumorType,
		string(rec.Tier),
		string(rec.Sublevel),
		rec.Justification,
		rec.Narrative,
		rec.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": rec.ID,
			"gene":          rec.Gene,
			"variant":       rec.Variant,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": rec.ID,
		"gene":          rec.Gene,
		"variant":       rec.Variant,
		"tier":          string(rec.Tier),
	}).Info("Assessment saved")

	return nil
}

// GetByID retrieves an assessment by its ID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	query := `
		SELECT id, gene, variant, tumor_type, tier, sublevel, justification, narrative, created_at
		FROM assessments
		WHERE id = $1`

	rec, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting assessment %s: %w", id, err)
	}
	return rec, nil
}

// ListByGene returns the most recent assessments for a gene.
func (r *AssessmentRepository) ListByGene(ctx context.Context, gene string, limit int) ([]*domain.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, gene, variant, tumor_type, tier, sublevel, justification, narrative, created_at
		FROM assessments
		WHERE gene = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, strings.ToUpper(gene), limit)
	if err != nil {
		return nil, fmt.Errorf("listing assessments for %s: %w", gene, err)
	}
	defer rows.Close()

	var records []*domain.AssessmentRecord
	for rows.Next() {
		rec, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}
	return records, nil
}

func (r *AssessmentRepository) scanOne(row pgx.Row) (*domain.AssessmentRecord, error) {
	var rec domain.AssessmentRecord
	var tier, sublevel string
	if err := row.Scan(
		&rec.ID,
		&rec.Gene,
		&rec.Variant,
		&rec.TumorType,
		&tier,
		&sublevel,
		&rec.Justification,
		&rec.Narrative,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Tier = domain.Tier(tier)
	rec.Sublevel = domain.Sublevel(sublevel)
	return &rec, nil
}
