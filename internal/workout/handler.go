package workout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"SafePlan/internal/database"
	"SafePlan/internal/utility"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PlanGenerationFailedMsg is what users see when the model could not produce a plan.
const PlanGenerationFailedMsg = "Não foi possível gerar o plano no momento. Verifique a sua chave de API ou tente novamente em alguns instantes."

const (
	maxPageSize = 50
	// maxPage keeps (page-1)*pageSize far from overflowing.
	maxPage = 100000
)

// PlanGenerator is the AI backend used by the handlers.
type PlanGenerator interface {
	ImageGenerator
	GenerateWorkoutPlan(ctx context.Context, profile database.UserProfile) (*database.WorkoutPlanResponse, error)
}

// Handler serves the plan and illustration endpoints.
type Handler struct {
	store     database.Store
	ai        PlanGenerator
	imageOpts ImageOptions
	hub       *utility.Hub
}

func NewHandler(store database.Store, ai PlanGenerator, imageOpts ImageOptions, hub *utility.Hub) *Handler {
	if hub == nil {
		hub = utility.NewHub()
	}
	return &Handler{store: store, ai: ai, imageOpts: imageOpts, hub: hub}
}

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// PlanResponse is returned after generating a plan.
type PlanResponse struct {
	database.StoredPlan
	// Persisted is false when the plan was generated but could not be stored.
	Persisted bool `json:"persisted"`
}

// PlanSummary is one row of the plan history.
type PlanSummary struct {
	ID        uuid.UUID `json:"id"`
	PlanName  string    `json:"planName"`
	Goal      string    `json:"goal"`
	Location  string    `json:"location"`
	Phases    int       `json:"phases"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlanHistoryResponse handles pagination for history lists.
type PlanHistoryResponse struct {
	Plans      []PlanSummary `json:"plans"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	HasMore    bool          `json:"has_more"`
}

type ExerciseImageRequest struct {
	Name      string `json:"name"`
	VisualCue string `json:"visualCue"`
}

type ExerciseImageResponse struct {
	Image *string `json:"image"`
}

type PlanImagesResponse struct {
	PlanID uuid.UUID                `json:"planId"`
	Images []database.ExerciseImage `json:"images"`
}

// ImageEvent is one websocket message of the image stream.
type ImageEvent struct {
	Type  string                  `json:"type"` // "image" or "done"
	Image *database.ExerciseImage `json:"image,omitempty"`
}

/*=================================================================================
									HANDLERS
=================================================================================*/

// GeneratePlanHandler validates the profile, asks the model for a plan and stores it.
func (h *Handler) GeneratePlanHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := utility.LoggerFromContext(c)

	var profile database.UserProfile
	if err := c.Bind(&profile); err != nil {
		logger.Warn().Err(err).Msg("Failed to bind profile")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	profile = NormalizeProfile(profile)
	if err := ValidateProfile(profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": strings.ReplaceAll(err.Error(), "\n", "; "),
		})
	}

	plan, err := h.ai.GenerateWorkoutPlan(ctx, profile)
	if err != nil {
		logger.Error().Err(err).Msg("Workout plan generation failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": PlanGenerationFailedMsg})
	}

	if len(plan.Phases) == 0 {
		logger.Warn().Msg("Generated plan has no phases")
	}
	if n := len(plan.Nutrition.WeeklyMenu); n != 7 {
		logger.Warn().Int("menu_days", n).Msg("Generated weekly menu does not have 7 days")
	}

	resp := PlanResponse{
		StoredPlan: database.StoredPlan{
			ID:        uuid.New(),
			Profile:   profile,
			Plan:      *plan,
			CreatedAt: time.Now().UTC(),
		},
		Persisted: true,
	}

	if err := h.store.SavePlan(ctx, resp.StoredPlan); err != nil {
		logger.Error().Err(err).Str("plan_id", resp.ID.String()).Msg("Failed to store plan")
		resp.Persisted = false
	}

	logger.Info().Str("plan_id", resp.ID.String()).Str("plan_name", plan.PlanName).Msg("Plan generated")
	return c.JSON(http.StatusCreated, resp)
}

// ListPlansHandler returns paginated plan history, newest first.
func (h *Handler) ListPlansHandler(c echo.Context) error {
	ctx := c.Request().Context()

	page := utility.ParseIntParam(c.QueryParam("page"), 1)
	pageSize := utility.ParseIntParam(c.QueryParam("page_size"), 10)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "page is out of range"})
	}
	offset := (page - 1) * pageSize

	plans, total, err := h.store.ListPlans(ctx, pageSize, offset)
	if err != nil {
		utility.LoggerFromContext(c).Error().Err(err).Msg("Failed to list plans")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch history"})
	}

	items := make([]PlanSummary, 0, len(plans))
	for _, p := range plans {
		items = append(items, PlanSummary{
			ID:        p.ID,
			PlanName:  p.Plan.PlanName,
			Goal:      p.Profile.Goal,
			Location:  p.Profile.Location,
			Phases:    len(p.Plan.Phases),
			CreatedAt: p.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, PlanHistoryResponse{
		Plans:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    offset+pageSize < total,
	})
}

// GetPlanHandler returns one stored plan.
func (h *Handler) GetPlanHandler(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid plan ID format"})
	}

	plan, err := h.store.GetPlan(c.Request().Context(), planID)
	if err != nil {
		return h.storeError(c, err, "Failed to fetch plan")
	}
	return c.JSON(http.StatusOK, plan)
}

// DeletePlanHandler removes a plan and its illustrations.
func (h *Handler) DeletePlanHandler(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid plan ID format"})
	}

	if err := h.store.DeletePlan(c.Request().Context(), planID); err != nil {
		return h.storeError(c, err, "Failed to delete plan")
	}
	return c.NoContent(http.StatusNoContent)
}

// ExerciseImageHandler illustrates a single exercise. A failed generation is
// answered with a null image, not an error.
func (h *Handler) ExerciseImageHandler(c echo.Context) error {
	var req ExerciseImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.VisualCue = strings.TrimSpace(req.VisualCue)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	url, err := h.ai.GenerateExerciseImage(c.Request().Context(), req.Name, req.VisualCue)
	if err != nil {
		utility.LoggerFromContext(c).Warn().Err(err).Str("exercise", req.Name).Msg("Error generating image")
		url = nil
	}
	return c.JSON(http.StatusOK, ExerciseImageResponse{Image: url})
}

// PlanImagesHandler illustrates every exercise of a plan that does not have an
// image yet, stores the results and returns them all in plan order.
func (h *Handler) PlanImagesHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := utility.LoggerFromContext(c)

	plan, existing, err := h.loadPlanImages(ctx, c.Param("plan_id"))
	if err != nil {
		return h.planLookupError(c, err)
	}

	results := make(map[string]database.ExerciseImage, len(existing))
	skip := make(map[string]bool)
	for _, img := range existing {
		results[img.Key] = img
		if img.Image != nil {
			skip[img.Key] = true
		}
	}

	err = FetchImages(ctx, h.ai, plan.Plan, h.imageOpts, skip, func(img database.ExerciseImage) {
		results[img.Key] = img
		if err := h.store.SaveExerciseImage(ctx, plan.ID, img); err != nil {
			logger.Error().Err(err).Str("key", img.Key).Msg("Failed to store exercise image")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Image fan-out interrupted")
	}

	ordered := make([]database.ExerciseImage, 0, len(results))
	for _, ke := range ExerciseKeys(plan.Plan) {
		if img, ok := results[ke.Key]; ok {
			ordered = append(ordered, img)
		}
	}
	return c.JSON(http.StatusOK, PlanImagesResponse{PlanID: plan.ID, Images: ordered})
}

// PlanImagesStreamHandler upgrades to a websocket and pushes each illustration
// as soon as it resolves. Stored images are sent first. The "done" event goes
// only to the connection whose fan-out finished.
func (h *Handler) PlanImagesStreamHandler(c echo.Context) error {
	logger := utility.LoggerFromContext(c)

	plan, existing, err := h.loadPlanImages(c.Request().Context(), c.Param("plan_id"))
	if err != nil {
		return h.planLookupError(c, err)
	}

	conn, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}

	planKey := plan.ID.String()
	skip := make(map[string]bool)
	for _, img := range existing {
		if img.Image == nil {
			continue
		}
		skip[img.Key] = true
		if err := h.hub.Send(planKey, conn, ImageEvent{Type: "image", Image: &img}); err != nil {
			conn.Close()
			return nil
		}
	}

	h.hub.Register(planKey, conn)
	defer h.hub.Unregister(planKey, conn)

	// The hijacked request context is not canceled when the client leaves, so
	// watch the read side instead.
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	err = FetchImages(ctx, h.ai, plan.Plan, h.imageOpts, skip, func(img database.ExerciseImage) {
		if err := h.store.SaveExerciseImage(ctx, plan.ID, img); err != nil {
			logger.Error().Err(err).Str("key", img.Key).Msg("Failed to store exercise image")
		}
		h.hub.Broadcast(planKey, ImageEvent{Type: "image", Image: &img})
	})
	if err != nil {
		logger.Info().Err(err).Str("plan_id", planKey).Msg("Image stream closed by client")
		return nil
	}

	// Other tabs on this plan run their own fan-out and get their own done.
	_ = h.hub.Send(planKey, conn, ImageEvent{Type: "done"})
	return nil
}

/*=================================================================================
								HELPER FUNCTIONS
=================================================================================*/

var errInvalidPlanID = errors.New("invalid plan id")

func (h *Handler) loadPlanImages(ctx context.Context, rawID string) (database.StoredPlan, []database.ExerciseImage, error) {
	planID, err := uuid.Parse(rawID)
	if err != nil {
		return database.StoredPlan{}, nil, errInvalidPlanID
	}
	plan, err := h.store.GetPlan(ctx, planID)
	if err != nil {
		return database.StoredPlan{}, nil, err
	}
	existing, err := h.store.ExerciseImages(ctx, planID)
	if err != nil {
		return database.StoredPlan{}, nil, err
	}
	return plan, existing, nil
}

func (h *Handler) planLookupError(c echo.Context, err error) error {
	if errors.Is(err, errInvalidPlanID) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid plan ID format"})
	}
	return h.storeError(c, err, "Failed to fetch plan")
}

func (h *Handler) storeError(c echo.Context, err error, msg string) error {
	if errors.Is(err, database.ErrPlanNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Plan not found"})
	}
	utility.LoggerFromContext(c).Error().Err(err).Msg(msg)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": msg})
}
