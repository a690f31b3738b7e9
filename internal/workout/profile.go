package workout

import (
	"errors"
	"fmt"
	"strings"

	"SafePlan/internal/database"
)

// Goals offered by the profile form.
const (
	GoalWeightLoss   = "Perda de Peso"
	GoalStrength     = "Fortalecimento"
	GoalMobility     = "Mobilidade"
	LocationHome     = "home"
	LocationGym      = "gym"
	defaultFrequency = 3
)

var validGoals = map[string]bool{
	GoalWeightLoss: true,
	GoalStrength:   true,
	GoalMobility:   true,
}

// NormalizeProfile trims free text and fills in the same defaults the form starts with.
func NormalizeProfile(p database.UserProfile) database.UserProfile {
	p.Goal = strings.TrimSpace(p.Goal)
	if p.Goal == "" {
		p.Goal = GoalWeightLoss
	}
	p.Location = strings.ToLower(strings.TrimSpace(p.Location))
	if p.Location == "" {
		p.Location = LocationHome
	}
	if p.Frequency == 0 {
		p.Frequency = defaultFrequency
	}
	if p.TargetWeight < 0 {
		p.TargetWeight = 0
	}
	p.Timeline = strings.TrimSpace(p.Timeline)
	p.Conditions = strings.TrimSpace(p.Conditions)
	return p
}

// ValidateProfile checks a normalized profile and joins every problem found.
func ValidateProfile(p database.UserProfile) error {
	var errs []error

	if p.Age < 1 || p.Age > 120 {
		errs = append(errs, errors.New("age must be between 1 and 120"))
	}
	if p.Height < 50 || p.Height > 260 {
		errs = append(errs, errors.New("height must be between 50 and 260 cm"))
	}
	if p.Weight < 20 || p.Weight > 400 {
		errs = append(errs, errors.New("weight must be between 20 and 400 kg"))
	}
	if p.TargetWeight != 0 && (p.TargetWeight < 20 || p.TargetWeight > 400) {
		errs = append(errs, errors.New("targetWeight must be between 20 and 400 kg"))
	}
	if p.Frequency < 3 || p.Frequency > 6 {
		errs = append(errs, errors.New("frequency must be between 3 and 6 days per week"))
	}
	if !validGoals[p.Goal] {
		errs = append(errs, fmt.Errorf("goal must be one of %q, %q, %q", GoalWeightLoss, GoalStrength, GoalMobility))
	}
	if p.Location != LocationHome && p.Location != LocationGym {
		errs = append(errs, fmt.Errorf("location must be %q or %q", LocationHome, LocationGym))
	}
	if p.Conditions == "" {
		errs = append(errs, errors.New("conditions are required"))
	}

	return errors.Join(errs...)
}
