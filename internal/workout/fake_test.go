package workout

import (
	"context"
	"errors"
	"sync"

	"SafePlan/internal/database"
)

type fakeAI struct {
	mu         sync.Mutex
	plan       *database.WorkoutPlanResponse
	planErr    error
	failImages map[string]bool
	noImage    map[string]bool
	imageCalls map[string]int
	profiles   []database.UserProfile
}

func newFakeAI(plan *database.WorkoutPlanResponse) *fakeAI {
	return &fakeAI{
		plan:       plan,
		failImages: map[string]bool{},
		noImage:    map[string]bool{},
		imageCalls: map[string]int{},
	}
}

func (f *fakeAI) GenerateWorkoutPlan(_ context.Context, profile database.UserProfile) (*database.WorkoutPlanResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	if f.planErr != nil {
		return nil, f.planErr
	}
	p := *f.plan
	return &p, nil
}

func (f *fakeAI) GenerateExerciseImage(ctx context.Context, name, _ string) (*string, error) {
	f.mu.Lock()
	f.imageCalls[name]++
	fail := f.failImages[name]
	none := f.noImage[name]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, errors.New("image model unavailable")
	}
	if none {
		return nil, nil
	}
	url := "data:image/png;base64," + name
	return &url, nil
}

func (f *fakeAI) calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCalls[name]
}

func (f *fakeAI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.imageCalls {
		n += c
	}
	return n
}

// samplePlan has the same squat in both phases, plus a bridge and a plank.
func samplePlan() *database.WorkoutPlanResponse {
	squat := database.Exercise{Name: "Agachamento", Sets: "3", Reps: "12", SafetyNote: "Olhar em frente", VisualCue: "Sentar numa cadeira"}
	bridge := database.Exercise{Name: "Ponte", Sets: "3", Reps: "15", SafetyNote: "Cabeça no chão", VisualCue: "Levantar a anca"}
	plank := database.Exercise{Name: "Prancha", Sets: "3", Reps: "30s", SafetyNote: "Pescoço neutro", VisualCue: "Corpo como uma tábua"}

	menu := make([]database.MenuDay, 7)
	for i := range menu {
		menu[i] = database.MenuDay{DayName: "Dia", Meals: []database.MealTime{{Time: "Almoço", Options: []database.MealOption{{OptionName: "A", Description: "Peixe"}}}}}
	}

	return &database.WorkoutPlanResponse{
		PlanName:           "Plano Coluna Segura",
		PlanDurationAdvice: "Mantenha 30 dias.",
		Description:        "Perda de peso com segurança cervical.",
		Phases: []database.WorkoutPhase{
			{PhaseName: "Fase 1 (Semanas 1-2)", Description: "Adaptação", Schedule: []database.DayPlan{
				{Day: "Segunda-feira", Focus: "Pernas", Exercises: []database.Exercise{squat, bridge}},
			}},
			{PhaseName: "Fase 2 (Semanas 3-4)", Description: "Progressão", Schedule: []database.DayPlan{
				{Day: "Segunda-feira", Focus: "Pernas", Exercises: []database.Exercise{squat}},
				{Day: "Quarta-feira", Focus: "Core", Exercises: []database.Exercise{plank}},
			}},
		},
		Nutrition: database.NutritionPlan{
			DailyCalories: 2100,
			Macros:        database.Macros{Protein: "170g", Carbs: "190g", Fats: "70g"},
			HydrationGoal: "3L",
			WeeklyMenu:    menu,
		},
	}
}
