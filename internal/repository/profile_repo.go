package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
)

// CandidateFilters is the normalized filter parameter set for a candidate
// query. Nil/empty optional fields mean "no constraint". Field names double
// as the canonical JSON shape hashed into the list-cache signature.
type CandidateFilters struct {
	Genders       []string `json:"genders"`
	ZodiacSign    string   `json:"zodiac_sign,omitempty"`
	MinAge        *int     `json:"min_age,omitempty"`
	MaxAge        *int     `json:"max_age,omitempty"`
	MaxDistanceKm *int     `json:"max_distance_km,omitempty"`
	ActivityType  string   `json:"activity_type,omitempty"`
}

// ProfileRepository provides data access for profiles and the candidate
// filter pipeline.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetByID loads a single profile.
func (r *ProfileRepository) GetByID(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs bulk-loads profiles, returned keyed by id. Missing ids are simply
// absent from the map.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*db.Profile, error) {
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]*db.Profile, len(profiles))
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out, nil
}

// FindCandidates runs the filter pipeline for a viewer and returns the
// eligible candidates ordered by id for reproducible pagination.
//
// Pipeline:
//   - gender preference applied bidirectionally: the viewer's stated set
//     must admit the candidate AND the candidate's stated set must admit
//     the viewer;
//   - every id in the viewer's swipe history is excluded, unconditionally;
//   - zodiac, age-range and activity-type constraints apply only when
//     supplied;
//   - when a max distance is supplied, candidates without resolvable
//     coordinates are excluded, and the rest are checked against the
//     haversine distance to the viewer.
//
// Query failures are surfaced to the caller; this layer never retries and
// never degrades to an empty list.
func (r *ProfileRepository) FindCandidates(
	ctx context.Context,
	viewer *db.Profile,
	filters CandidateFilters,
	limit, offset int,
) ([]db.Profile, error) {
	genders := filters.Genders
	if len(genders) == 0 {
		genders = db.UnwrapGenderSet(viewer.GenderPreference)
	}

	query := r.db.WithContext(ctx).
		Table("profiles p").
		Where("p.id <> ?", viewer.ID).
		Where("p.active = ?", true).
		Where("p.gender IN ?", genders).
		Where("p.gender_preference LIKE ?", "%,"+viewer.Gender+",%").
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipe_decisions s
				WHERE s.actor_id = ?
				  AND s.candidate_id = p.id
			)`, viewer.ID)

	if filters.ZodiacSign != "" {
		query = query.Where("p.sun_sign = ?", filters.ZodiacSign)
	}
	if filters.ActivityType != "" {
		query = query.Where("p.activity_type = ?", filters.ActivityType)
	}

	now := time.Now().UTC()
	if filters.MinAge != nil {
		// born at least MinAge years ago
		query = query.Where("p.birth_date IS NOT NULL AND p.birth_date <= ?", now.AddDate(-*filters.MinAge, 0, 0))
	}
	if filters.MaxAge != nil {
		// not yet MaxAge+1 years old
		query = query.Where("p.birth_date IS NOT NULL AND p.birth_date > ?", now.AddDate(-*filters.MaxAge-1, 0, 0))
	}

	distanceFiltered := filters.MaxDistanceKm != nil && viewer.Lat != nil && viewer.Lng != nil
	if filters.MaxDistanceKm != nil {
		// candidates lacking coordinates are excluded, not defaulted
		query = query.Where("p.lat IS NOT NULL AND p.lng IS NOT NULL")
	}
	if distanceFiltered {
		// cheap bounding box in SQL; exact haversine check below
		maxKm := float64(*filters.MaxDistanceKm)
		latDelta := maxKm / 110.574
		query = query.Where("p.lat BETWEEN ? AND ?", *viewer.Lat-latDelta, *viewer.Lat+latDelta)
	}

	query = query.Order("p.id ASC")
	if !distanceFiltered {
		query = query.Limit(limit).Offset(offset)
	}

	var candidates []db.Profile
	if err := query.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", svcErr.ErrCandidatesUnavailable, err)
	}

	if !distanceFiltered {
		return candidates, nil
	}

	// exact distance pass, then paginate in order
	maxKm := float64(*filters.MaxDistanceKm)
	within := candidates[:0]
	for i := range candidates {
		c := &candidates[i]
		if c.Lat == nil || c.Lng == nil {
			continue
		}
		if haversineKm(*viewer.Lat, *viewer.Lng, *c.Lat, *c.Lng) <= maxKm {
			within = append(within, *c)
		}
	}
	if offset >= len(within) {
		return []db.Profile{}, nil
	}
	within = within[offset:]
	if limit > 0 && len(within) > limit {
		within = within[:limit]
	}
	return within, nil
}

// haversineKm returns the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)
	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

