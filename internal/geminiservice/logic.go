package geminiservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"SafePlan/internal/config"
	"SafePlan/internal/database"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options wires a Service. Zero values get sensible defaults.
type Options struct {
	TextModel      string
	ImageModel     string
	ImageCacheSize int
	// ImageRatePerSec paces outgoing image requests across all callers. <= 0 disables pacing.
	ImageRatePerSec float64
}

// Service is the domain facade over Client: it knows the plan prompt, the plan
// schema and how to turn image parts into data URLs.
type Service struct {
	client       *Client
	textModel    string
	imageModel   string
	imageCache   *lru.Cache[string, string]
	imageLimiter *rate.Limiter
}

func NewService(client *Client, opts Options) (*Service, error) {
	if opts.TextModel == "" {
		opts.TextModel = "gemini-3-flash-preview"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "gemini-2.5-flash-image"
	}
	if opts.ImageCacheSize <= 0 {
		opts.ImageCacheSize = 256
	}

	cache, err := lru.New[string, string](opts.ImageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.ImageRatePerSec > 0 {
		burst := int(opts.ImageRatePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.ImageRatePerSec), burst)
	}

	return &Service{
		client:       client,
		textModel:    opts.TextModel,
		imageModel:   opts.ImageModel,
		imageCache:   cache,
		imageLimiter: limiter,
	}, nil
}

// NewServiceFromConfig builds the Client and Service from application config.
func NewServiceFromConfig(cfg *config.Config) (*Service, error) {
	client := NewClient(ClientOptions{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		MaxRetries: cfg.GeminiMaxRetries,
		Timeout:    cfg.GeminiTimeout,
	})
	return NewService(client, Options{
		TextModel:       cfg.GeminiTextModel,
		ImageModel:      cfg.GeminiImageModel,
		ImageCacheSize:  cfg.ImageCacheSize,
		ImageRatePerSec: cfg.ImageRatePerSec,
	})
}

// GenerateWorkoutPlan prompts the text model for a monthly plan and parses it.
func (s *Service) GenerateWorkoutPlan(ctx context.Context, profile database.UserProfile) (*database.WorkoutPlanResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Int("age", profile.Age).
		Str("goal", profile.Goal).
		Str("location", profile.Location).
		Int("frequency", profile.Frequency).
		Msg("Sending workout plan prompt to Gemini")

	var plan database.WorkoutPlanResponse
	prompt := BuildWorkoutPrompt(profile)
	if err := s.client.GenerateAndParse(ctx, "WorkoutPlan", s.textModel, SystemPrompt, prompt, WorkoutPlanSchema, &plan); err != nil {
		return nil, err
	}

	logger.Info().Str("plan_name", plan.PlanName).Int("phases", len(plan.Phases)).Msg("Successfully generated workout plan")
	return &plan, nil
}

// GenerateExerciseImage returns a data URL for an illustration of the exercise,
// or nil when the model produced no picture. Results are cached by name and cue.
func (s *Service) GenerateExerciseImage(ctx context.Context, exerciseName, visualCue string) (*string, error) {
	key := imageCacheKey(exerciseName, visualCue)
	if url, ok := s.imageCache.Get(key); ok {
		return &url, nil
	}

	if err := s.imageLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("image request not sent: %w", err)
	}

	data, err := s.client.GenerateImage(ctx, s.imageModel, BuildExerciseImagePrompt(exerciseName, visualCue))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	url := fmt.Sprintf("data:%s;base64,%s", data.MimeType, data.Data)
	s.imageCache.Add(key, url)
	return &url, nil
}

func imageCacheKey(name, cue string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + cue))
	return hex.EncodeToString(sum[:])
}
