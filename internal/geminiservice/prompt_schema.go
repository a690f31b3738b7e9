package geminiservice

import (
	"fmt"
	"strconv"
	"strings"

	"SafePlan/internal/database"
)

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	This is the core structure that tells Gemini how to format its JSON response
=================================================================================*/

// GeminiSchema defines the structure for "Controlled Generation" (Structured Output).
type GeminiSchema struct {
	// Type defines the data type (e.g., "OBJECT", "ARRAY", "STRING", "NUMBER").
	Type string `json:"type"`

	// Description explains the field's purpose to the AI, helping it generate better content.
	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (used when Type is "OBJECT").
	Properties map[string]*GeminiSchema `json:"properties,omitempty"`

	// Items defines the schema for elements within an array (used when Type is "ARRAY").
	Items *GeminiSchema `json:"items,omitempty"`

	// Required lists the field names that the AI MUST include in the response.
	Required []string `json:"required,omitempty"`
}

func str(description string) *GeminiSchema {
	return &GeminiSchema{Type: "STRING", Description: description}
}

func arrayOf(items *GeminiSchema) *GeminiSchema {
	return &GeminiSchema{Type: "ARRAY", Items: items}
}

/*
WorkoutPlanSchema describes the exact JSON structure the AI MUST output.
It matches database.WorkoutPlanResponse field for field.
*/
var WorkoutPlanSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"planName": str(""),
		"planDurationAdvice": str(
			"Explain whether to keep this for 15 or 30 days and why, based on the profile stats. PT-PT language.",
		),
		"description": str(""),
		"phases": arrayOf(&GeminiSchema{
			Type: "OBJECT",
			Properties: map[string]*GeminiSchema{
				"phaseName":   str("e.g., Fase 1 (Semana 1-2)"),
				"description": str("Focus of this phase"),
				"schedule": arrayOf(&GeminiSchema{
					Type: "OBJECT",
					Properties: map[string]*GeminiSchema{
						"day":   str(""),
						"focus": str(""),
						"exercises": arrayOf(&GeminiSchema{
							Type: "OBJECT",
							Properties: map[string]*GeminiSchema{
								"name":       str(""),
								"sets":       str(""),
								"reps":       str(""),
								"safetyNote": str(""),
								"visualCue":  str(""),
							},
							Required: []string{"name", "sets", "reps", "safetyNote", "visualCue"},
						}),
					},
					Required: []string{"day", "focus", "exercises"},
				}),
			},
			Required: []string{"phaseName", "description", "schedule"},
		}),
		"nutrition": {
			Type: "OBJECT",
			Properties: map[string]*GeminiSchema{
				"dailyCalories": {Type: "NUMBER"},
				"macros": {
					Type: "OBJECT",
					Properties: map[string]*GeminiSchema{
						"protein": str(""),
						"carbs":   str(""),
						"fats":    str(""),
					},
					Required: []string{"protein", "carbs", "fats"},
				},
				"hydrationGoal":        str(""),
				"antiInflammatoryTips": arrayOf(str("")),
				"weeklyMenu": arrayOf(&GeminiSchema{
					Type: "OBJECT",
					Properties: map[string]*GeminiSchema{
						"dayName": str("e.g., Segunda-feira"),
						"meals": arrayOf(&GeminiSchema{
							Type: "OBJECT",
							Properties: map[string]*GeminiSchema{
								"time": str("e.g., Pequeno-almoço"),
								"options": arrayOf(&GeminiSchema{
									Type: "OBJECT",
									Properties: map[string]*GeminiSchema{
										"optionName":  str(""),
										"description": str(""),
									},
									Required: []string{"optionName", "description"},
								}),
							},
							Required: []string{"time", "options"},
						}),
					},
					Required: []string{"dayName", "meals"},
				}),
			},
			Required: []string{"dailyCalories", "macros", "hydrationGoal", "antiInflammatoryTips", "weeklyMenu"},
		},
	},
	Required: []string{"planName", "planDurationAdvice", "description", "phases", "nutrition"},
}

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// SystemPrompt sets the persona. The plan prompt repeats the language rules
// because the model drifts to pt-BR without them.
const SystemPrompt = `Atue como um Fisioterapeuta experiente, Personal Trainer de elite e Nutricionista Desportivo.
A segurança da coluna cervical do utilizador é a prioridade absoluta.`

const planInstructions = `
IDIOMA E REGIONALISMO OBRIGATÓRIO:
Escreva EXCLUSIVAMENTE em **PORTUGUÊS DE PORTUGAL (pt-PT)**.
- Use "Pequeno-almoço" em vez de "Café da manhã".
- Use "Ginásio" em vez de "Academia".
- Use "Autocarro" em vez de "Ônibus" (se aplicável).
- Use a construção gramatical correta de Portugal (ex: "a sua dieta", "o seu treino").

ESTRATÉGIA DE LONGO PRAZO:
O utilizador quer saber se deve manter este plano por 15 ou 30 dias. Com base no peso dele (%[1]skg) e altura (%[2]scm), defina a duração ideal deste ciclo antes de mudar os estímulos.

ESTRUTURA DO TREINO (PERIODIZAÇÃO):
Divida o treino em 2 FASES para cobrir o mês:
- Fase 1 (Semanas 1-2): Adaptação neuromuscular e técnica.
- Fase 2 (Semanas 3-4): Progressão de carga/intensidade (mesmos exercícios ou variações mais difíceis).

DIRETRIZES DE TREINO:
1. Segurança Cervical TOTAL: Sem carga axial na cabeça/pescoço.
2. Dica Visual: Para cada exercício, dê uma descrição visual simples para gerar uma imagem mental (e.g., "Imagine sentar numa cadeira").

ESTRUTURA NUTRICIONAL (CICLO SEMANAL):
Em vez de um dia genérico, crie um **CICLO DE 7 DIAS** de refeições variadas para ele não enjoar durante o mês.
As refeições devem ser: Pequeno-almoço, Almoço, Lanche, Jantar, Ceia (opcional).

Retorne JSON estrito.`

// formatNumber prints 92 as "92" and 92.5 as "92.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LocationLabel maps the profile location code to the label used in the prompt.
func LocationLabel(location string) string {
	if location == "home" {
		return "EM CASA"
	}
	return "GINÁSIO"
}

// BuildWorkoutPrompt renders the monthly plan request for a profile.
// Target weight and timeline lines are only emitted when present.
func BuildWorkoutPrompt(p database.UserProfile) string {
	var b strings.Builder

	b.WriteString("Crie um **PLANO MENSAL (30 DIAS)** detalhado para o seguinte perfil:\n")
	fmt.Fprintf(&b, "- Idade: %d anos\n", p.Age)
	fmt.Fprintf(&b, "- Altura: %s cm\n", formatNumber(p.Height))
	fmt.Fprintf(&b, "- Peso Atual: %s kg\n", formatNumber(p.Weight))
	if p.TargetWeight > 0 {
		fmt.Fprintf(&b, "- Meta de Peso: %s kg\n", formatNumber(p.TargetWeight))
	}
	if p.Timeline != "" {
		fmt.Fprintf(&b, "- Prazo Final (Meta): %s\n", p.Timeline)
	}
	fmt.Fprintf(&b, "- Objetivo: %s\n", p.Goal)
	fmt.Fprintf(&b, "- Frequência de Treino: %d dias por semana\n", p.Frequency)
	fmt.Fprintf(&b, "- LOCAL DE TREINO: %s\n", LocationLabel(p.Location))
	fmt.Fprintf(&b, "- CONDIÇÃO MÉDICA: %s\n", p.Conditions)

	fmt.Fprintf(&b, planInstructions, formatNumber(p.Weight), formatNumber(p.Height))
	return b.String()
}

// BuildExerciseImagePrompt asks for a clear instructional drawing of one exercise.
func BuildExerciseImagePrompt(exerciseName, visualCue string) string {
	return fmt.Sprintf(
		`Simple minimalist line drawing (stick figure style) of a person performing the exercise: "%s". Action context: "%s". White background, black lines. Clear and easy to understand. No text in the image.`,
		exerciseName, visualCue,
	)
}
