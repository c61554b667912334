// Package seed populates a database with demo profiles and a swipe graph
// for development and manual testing.
package seed

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/astropair/astropair/internal/astro"
	"github.com/astropair/astropair/internal/db"
)

var signs = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

var activityTypes = []string{"dating", "friendship", "activity"}

const quizQuestions = 12

// Run resets the database and populates it with demo users and swipes.
//
//  1. Clears profiles, swipe decisions and stored scores.
//  2. Creates 20 users (10 male, 10 female) with placements, answers,
//     locations around one city, and preferences.
//  3. Generates a swipe graph so candidate exclusion has something to bite.
func Run(database *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"compatibility_scores", "swipe_decisions", "profiles"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Berlin-ish coordinates, scattered a few km apart
	baseLat, baseLng := 52.52, 13.40

	ids := make([]uint64, 0, 20)
	for i := 1; i <= 20; i++ {
		gender, wants := "male", "female"
		if i > 10 {
			gender, wants = "female", "male"
		}

		birth := time.Date(1985+r.Intn(20), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)
		// moon/rising are normally derived by the natal-chart collaborator;
		// the seeder picks them deterministically from the birth moment
		hour := r.Intn(24)
		moon := signs[(birth.Day()+hour)%12]
		rising := signs[(birth.YearDay()+hour)%12]

		answers := make([]string, quizQuestions)
		for q := range answers {
			answers[q] = string(rune('a' + r.Intn(4)))
		}
		rawAnswers, _ := json.Marshal(answers)

		lat := baseLat + (r.Float64()-0.5)*0.4
		lng := baseLng + (r.Float64()-0.5)*0.4
		minAge, maxAge := 21, 45
		maxDist := 25 + r.Intn(75)

		profile := db.Profile{
			DisplayName:       fmt.Sprintf("user%d", i),
			Email:             fmt.Sprintf("user%d@example.com", i),
			PasswordHash:      string(hash),
			Active:            true,
			Gender:            gender,
			GenderPreference:  db.WrapGenderSet([]string{wants}),
			BirthDate:         &birth,
			BirthTime:         fmt.Sprintf("%02d:00", hour),
			BirthPlace:        "Berlin",
			SunSign:           astro.SignForDate(birth),
			MoonSign:          moon,
			RisingSign:        rising,
			QuizAnswers:       string(rawAnswers),
			Lat:               &lat,
			Lng:               &lng,
			PrefMinAge:        &minAge,
			PrefMaxAge:        &maxAge,
			PrefMaxDistanceKm: &maxDist,
			ActivityType:      activityTypes[r.Intn(len(activityTypes))],
		}

		if err := database.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
		ids = append(ids, profile.ID)
	}
	log.Println("Seeded 20 profiles.")

	// swipe graph: each user has already evaluated a handful of others.
	// Uses the ids actually assigned; auto-increment does not restart after
	// a reset.
	for _, actor := range ids {
		for j := 0; j < 5; j++ {
			candidate := ids[r.Intn(len(ids))]
			if candidate == actor {
				continue
			}
			swipe := db.SwipeDecision{
				ActorID:     actor,
				CandidateID: candidate,
				Liked:       r.Intn(100) < 70,
			}
			// pair may repeat within the loop; first write wins
			if err := database.Where(db.SwipeDecision{ActorID: actor, CandidateID: candidate}).
				FirstOrCreate(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe %d->%d: %w", actor, candidate, err)
			}
		}
	}
	log.Println("Seeded swipe graph.")

	return nil
}
