package database

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexStringAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want FlexString
	}{
		{`{"sets":"3"}`, "3"},
		{`{"sets":4}`, "4"},
		{`{"sets":"3-4"}`, "3-4"},
		{`{"sets":2.5}`, "2.5"},
		{`{"sets":null}`, ""},
	}
	for _, tt := range tests {
		var ex Exercise
		require.NoError(t, json.Unmarshal([]byte(tt.in), &ex), tt.in)
		assert.Equal(t, tt.want, ex.Sets, tt.in)
	}

	var ex Exercise
	assert.Error(t, json.Unmarshal([]byte(`{"sets":true}`), &ex))
}

func TestWorkoutPlanResponseDecodesModelOutput(t *testing.T) {
	raw := `{
		"planName": "Plano Coluna Segura",
		"planDurationAdvice": "Mantenha 30 dias.",
		"description": "Plano de adaptação.",
		"phases": [{
			"phaseName": "Fase 1 (Semanas 1-2)",
			"description": "Adaptação",
			"schedule": [{
				"day": "Segunda-feira",
				"focus": "Pernas",
				"exercises": [{"name": "Agachamento na cadeira", "sets": 3, "reps": "12", "safetyNote": "Olhar em frente", "visualCue": "Imagine sentar numa cadeira"}]
			}]
		}],
		"nutrition": {
			"dailyCalories": 2100,
			"macros": {"protein": "160g", "carbs": "200g", "fats": "70g"},
			"hydrationGoal": "3L",
			"antiInflammatoryTips": ["Curcuma"],
			"weeklyMenu": [{"dayName": "Segunda-feira", "meals": [{"time": "Pequeno-almoço", "options": [{"optionName": "A", "description": "Aveia"}]}]}]
		}
	}`

	var plan WorkoutPlanResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &plan))
	require.Len(t, plan.Phases, 1)
	assert.Equal(t, FlexString("3"), plan.Phases[0].Schedule[0].Exercises[0].Sets)
	assert.Equal(t, 2100.0, plan.Nutrition.DailyCalories)
	assert.Equal(t, "Pequeno-almoço", plan.Nutrition.WeeklyMenu[0].Meals[0].Time)
}
