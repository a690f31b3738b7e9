package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: [16]byte(id), Valid: true}
}

func (s *PostgresStore) SavePlan(ctx context.Context, plan StoredPlan) error {
	profileJSON, err := json.Marshal(plan.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	planJSON, err := json.Marshal(plan.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	_, err = s.Dbpool.Exec(ctx,
		`INSERT INTO plans (plan_id, profile, plan, plan_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		pgUUID(plan.ID), profileJSON, planJSON, plan.Plan.PlanName, plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id uuid.UUID) (StoredPlan, error) {
	row := s.Dbpool.QueryRow(ctx,
		`SELECT plan_id, profile, plan, created_at FROM plans WHERE plan_id = $1`, pgUUID(id))

	plan, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredPlan{}, ErrPlanNotFound
	}
	return plan, err
}

func (s *PostgresStore) ListPlans(ctx context.Context, limit, offset int) ([]StoredPlan, int, error) {
	var total int
	if err := s.Dbpool.QueryRow(ctx, `SELECT count(*) FROM plans`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	rows, err := s.Dbpool.Query(ctx,
		`SELECT plan_id, profile, plan, created_at
		 FROM plans
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []StoredPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, p)
	}
	return plans, total, rows.Err()
}

func (s *PostgresStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Dbpool.Exec(ctx, `DELETE FROM plans WHERE plan_id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (s *PostgresStore) SaveExerciseImage(ctx context.Context, planID uuid.UUID, img ExerciseImage) error {
	tag, err := s.Dbpool.Exec(ctx,
		`INSERT INTO exercise_images (plan_id, exercise_key, name, visual_cue, image)
		 SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text WHERE EXISTS (SELECT 1 FROM plans WHERE plan_id = $1::uuid)
		 ON CONFLICT (plan_id, exercise_key)
		 DO UPDATE SET image = EXCLUDED.image, name = EXCLUDED.name, visual_cue = EXCLUDED.visual_cue`,
		pgUUID(planID), img.Key, img.Name, img.VisualCue, img.Image,
	)
	if err != nil {
		return fmt.Errorf("failed to save exercise image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (s *PostgresStore) ExerciseImages(ctx context.Context, planID uuid.UUID) ([]ExerciseImage, error) {
	var exists bool
	if err := s.Dbpool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM plans WHERE plan_id = $1)`, pgUUID(planID)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check plan: %w", err)
	}
	if !exists {
		return nil, ErrPlanNotFound
	}

	rows, err := s.Dbpool.Query(ctx,
		`SELECT exercise_key, name, visual_cue, image
		 FROM exercise_images
		 WHERE plan_id = $1
		 ORDER BY created_at ASC`, pgUUID(planID))
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise images: %w", err)
	}
	defer rows.Close()

	images := []ExerciseImage{}
	for rows.Next() {
		var img ExerciseImage
		var data pgtype.Text
		if err := rows.Scan(&img.Key, &img.Name, &img.VisualCue, &data); err != nil {
			return nil, fmt.Errorf("failed to scan exercise image: %w", err)
		}
		if data.Valid {
			v := data.String
			img.Image = &v
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func scanPlan(row pgx.Row) (StoredPlan, error) {
	var (
		p           StoredPlan
		id          pgtype.UUID
		profileJSON []byte
		planJSON    []byte
	)
	if err := row.Scan(&id, &profileJSON, &planJSON, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredPlan{}, err
		}
		return StoredPlan{}, fmt.Errorf("failed to scan plan: %w", err)
	}
	p.ID = uuid.UUID(id.Bytes)
	if err := json.Unmarshal(profileJSON, &p.Profile); err != nil {
		return StoredPlan{}, fmt.Errorf("failed to decode stored profile: %w", err)
	}
	if err := json.Unmarshal(planJSON, &p.Plan); err != nil {
		return StoredPlan{}, fmt.Errorf("failed to decode stored plan: %w", err)
	}
	return p, nil
}
