package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

/* =================================================================================
							PROFILE (REQUEST SIDE)
=================================================================================*/

// UserProfile is the biometric and health profile submitted by the user.
type UserProfile struct {
	Age          int     `json:"age"`
	Height       float64 `json:"height"` // cm
	Weight       float64 `json:"weight"` // kg
	Goal         string  `json:"goal"`
	Frequency    int     `json:"frequency"` // training days per week
	Conditions   string  `json:"conditions"`
	TargetWeight float64 `json:"targetWeight,omitempty"` // kg, 0 means unset
	Timeline     string  `json:"timeline,omitempty"`
	Location     string  `json:"location"` // "home" or "gym"
}

/* =================================================================================
							GENERATED PLAN (RESPONSE SIDE)
=================================================================================*/

// FlexString accepts either a JSON string or a JSON number. The model is asked
// for strings but occasionally answers "sets": 3.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexstring: expected string or number, got %s", string(data))
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

type Exercise struct {
	Name       string     `json:"name"`
	Sets       FlexString `json:"sets"`
	Reps       string     `json:"reps"`
	SafetyNote string     `json:"safetyNote"`
	VisualCue  string     `json:"visualCue"`
}

type DayPlan struct {
	Day       string     `json:"day"`
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPhase is one block of the monthly periodization, e.g. "Fase 1 (Semanas 1-2)".
type WorkoutPhase struct {
	PhaseName   string    `json:"phaseName"`
	Description string    `json:"description"`
	Schedule    []DayPlan `json:"schedule"`
}

type MealOption struct {
	OptionName  string `json:"optionName"`
	Description string `json:"description"`
}

type MealTime struct {
	Time    string       `json:"time"`
	Options []MealOption `json:"options"`
}

type MenuDay struct {
	DayName string     `json:"dayName"`
	Meals   []MealTime `json:"meals"`
}

type Macros struct {
	Protein string `json:"protein"`
	Carbs   string `json:"carbs"`
	Fats    string `json:"fats"`
}

type NutritionPlan struct {
	DailyCalories        float64   `json:"dailyCalories"`
	Macros               Macros    `json:"macros"`
	HydrationGoal        string    `json:"hydrationGoal"`
	AntiInflammatoryTips []string  `json:"antiInflammatoryTips"`
	WeeklyMenu           []MenuDay `json:"weeklyMenu"`
}

// WorkoutPlanResponse mirrors the JSON schema sent to Gemini.
type WorkoutPlanResponse struct {
	PlanName           string         `json:"planName"`
	PlanDurationAdvice string         `json:"planDurationAdvice"`
	Description        string         `json:"description"`
	Phases             []WorkoutPhase `json:"phases"`
	Nutrition          NutritionPlan  `json:"nutrition"`
}

/* =================================================================================
								STORED RECORDS
=================================================================================*/

// StoredPlan is a generated plan together with the profile that produced it.
type StoredPlan struct {
	ID        uuid.UUID           `json:"id"`
	Profile   UserProfile         `json:"profile"`
	Plan      WorkoutPlanResponse `json:"plan"`
	CreatedAt time.Time           `json:"createdAt"`
}

// ExerciseImage is the illustration result for one exercise of a plan.
// Image is nil when generation failed or returned no picture.
type ExerciseImage struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	VisualCue string  `json:"visualCue"`
	Image     *string `json:"image"`
}
