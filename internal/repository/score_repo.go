package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/astropair/astropair/internal/db"
)

// ScoreRepository persists computed compatibility scores. The store is
// write-only from the matching core: rows exist for audit/analytics
// consumers and are never read back to answer a live request.
type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(database *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: database}
}

// Save upserts a score row. The composite PK (viewer_id, candidate_id)
// guarantees one row per pair; recomputation overwrites.
func (r *ScoreRepository) Save(ctx context.Context, score *db.CompatibilityScore) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "viewer_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"astro_grade", "quiz_grade", "score", "breakdown", "computed_at", "expires_at",
			}),
		}).
		Create(score).Error
}

// CountForViewer reports how many stored score rows a viewer has. Used by
// the seeding and ops tooling, not by the request path.
func (r *ScoreRepository) CountForViewer(ctx context.Context, viewerID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.CompatibilityScore{}).
		Where("viewer_id = ?", viewerID).
		Count(&count).Error
	return count, err
}
