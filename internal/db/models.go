package db

import (
	"encoding/json"
	"strings"
	"time"
)

// Profile holds everything the matching core reads about a user: derived
// natal placements, questionnaire answers, location, and stated preferences.
// It is written by onboarding/profile-update flows and read-only here.
type Profile struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	DisplayName  string `gorm:"size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`

	Gender string `gorm:"size:16;not null;index"`
	// GenderPreference is the set of genders the user wants to see, stored
	// wrapped in commas (e.g. ",female," or ",male,female,") so substring
	// matching with LIKE is exact on both MySQL and SQLite.
	GenderPreference string `gorm:"size:64;not null"`

	BirthDate  *time.Time `gorm:"index"`
	BirthTime  string     `gorm:"size:8"` // "HH:MM", local to birth place
	BirthPlace string     `gorm:"size:128"`
	SunSign    string     `gorm:"size:16;index"`
	MoonSign   string     `gorm:"size:16"`
	RisingSign string     `gorm:"size:16"`

	// QuizAnswers is a JSON array of answer codes, one per questionnaire
	// question, in question order.
	QuizAnswers string `gorm:"type:text"`

	Lat *float64
	Lng *float64

	PrefMinAge        *int
	PrefMaxAge        *int
	PrefMaxDistanceKm *int
	ActivityType      string `gorm:"size:32;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SwipeDecision records that an actor already evaluated a candidate.
// Composite PK (ActorID, CandidateID) gives one row per pair with an
// overwrite guarantee; candidates present here are unconditionally excluded
// from the actor's pool.
type SwipeDecision struct {
	ActorID     uint64    `gorm:"primaryKey;index:idx_actor_candidate,priority:1"`
	CandidateID uint64    `gorm:"primaryKey;index:idx_actor_candidate,priority:2"`
	Liked       bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// CompatibilityScore is the durable record of one computed score.
// Write-only from this core: live requests always recompute and never read
// these rows back. ExpiresAt is always ComputedAt plus the configured
// retention window.
type CompatibilityScore struct {
	ViewerID    uint64 `gorm:"primaryKey"`
	CandidateID uint64 `gorm:"primaryKey"`
	AstroGrade  string `gorm:"size:4;not null"`
	QuizGrade   string `gorm:"size:4;not null"`
	Score       int    `gorm:"not null"`
	// Breakdown carries the raw component sub-scores as JSON, opaque to
	// callers.
	Breakdown  string    `gorm:"type:text"`
	ComputedAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// HasBirthData reports whether the profile carries enough natal data for
// astrological grading.
func (p *Profile) HasBirthData() bool {
	return p.BirthDate != nil && p.SunSign != ""
}

// HasQuizData reports whether the profile has questionnaire answers.
func (p *Profile) HasQuizData() bool {
	return p.QuizAnswers != "" && p.QuizAnswers != "[]"
}

// Answers decodes the stored questionnaire answer codes.
func (p *Profile) Answers() ([]string, error) {
	if p.QuizAnswers == "" {
		return nil, nil
	}
	var answers []string
	if err := json.Unmarshal([]byte(p.QuizAnswers), &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// WantsGender reports whether the profile's stated preference admits the
// given gender.
func (p *Profile) WantsGender(gender string) bool {
	return strings.Contains(p.GenderPreference, ","+gender+",")
}

// WrapGenderSet normalizes a gender set into the stored comma-wrapped form.
func WrapGenderSet(genders []string) string {
	return "," + strings.Join(genders, ",") + ","
}

// UnwrapGenderSet splits the stored comma-wrapped form back into a set.
func UnwrapGenderSet(wrapped string) []string {
	var out []string
	for _, g := range strings.Split(wrapped, ",") {
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
