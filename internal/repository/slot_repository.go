package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

const slotSelect = `SELECT id, slot_name, slot_type,
	to_char(slot_start_time, 'HH24:MI') AS slot_start_time,
	to_char(slot_end_time, 'HH24:MI') AS slot_end_time,
	created_at
FROM slots`

// SlotRepository manages the fixed daily slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// List returns every slot ordered by type.
func (r *SlotRepository) List(ctx context.Context) ([]models.Slot, error) {
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, slotSelect+" ORDER BY slot_type ASC"); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// FindByID fetches a slot by ID.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, slotSelect+" WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// CreateMissing inserts the slots whose type does not exist yet and reports
// how many were created. Existing slots are left untouched.
func (r *SlotRepository) CreateMissing(ctx context.Context, slots []models.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed slots tx: %w", err)
	}

	const query = `INSERT INTO slots (id, slot_name, slot_type, slot_start_time, slot_end_time, created_at)
VALUES (:id, :slot_name, :slot_type, :slot_start_time, :slot_end_time, :created_at)
ON CONFLICT (slot_type) DO NOTHING`
	now := time.Now().UTC()
	created := 0
	for i := range slots {
		slot := slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.CreatedAt = now
		res, err := tx.NamedExecContext(ctx, query, slot)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("seed slot %s: %w", slot.Type, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed slots tx: %w", err)
	}
	return created, nil
}
