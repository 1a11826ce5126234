// Package plan reads placement plans from YAML and plays them onto a board,
// one day at a time, the way a user would drag teachers into slots.
package plan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/board"
	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Placement puts a teacher into a slot. Teacher is an id or staff code;
// Slot is an id, a slot type or a slot name.
type Placement struct {
	Teacher string `yaml:"teacher" validate:"required"`
	Slot    string `yaml:"slot" validate:"required"`
}

// DayPlan lists the changes for one day.
type DayPlan struct {
	Day string `yaml:"day" validate:"required"`
	// Replace clears the day before the placements are applied.
	Replace bool        `yaml:"replace,omitempty"`
	Remove  []string    `yaml:"remove,omitempty"`
	Assign  []Placement `yaml:"assign,omitempty" validate:"dive"`
}

// Plan is a set of day changes, optionally scoped to a department.
type Plan struct {
	DeptID string    `yaml:"dept_id,omitempty"`
	Days   []DayPlan `yaml:"days" validate:"required,min=1,dive"`
}

// Parse decodes and validates a plan. Unknown keys are rejected.
func Parse(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("plan is empty")
		}
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	for i, d := range p.Days {
		if _, err := models.ParseDay(d.Day); err != nil {
			return nil, fmt.Errorf("days[%d]: %w", i, err)
		}
	}
	return &p, nil
}

// Load reads a plan file.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Parse(f)
}

// Rejection is a placement the board refused.
type Rejection struct {
	Teacher string
	Slot    string
	Reason  allocation.Reason
	Err     error
}

// Outcome reports what happened to one day of a plan.
type Outcome struct {
	Day        models.DayOfWeek
	Operations []dto.BatchAssignment
	Rejected   []Rejection
	Result     *dto.BatchResult
	Saved      bool
}

// Options tunes Apply.
type Options struct {
	// DryRun computes the operations of each day without saving them.
	DryRun bool
	// Strict stops at the first rejected placement.
	Strict bool
	Logger *zap.Logger
}

// ErrRejected is returned in strict mode when the board refuses a placement.
var ErrRejected = errors.New("placement rejected")

// Apply plays p onto an open board. Each day is visited, edited and saved
// before the next; in dry-run mode the edits are discarded when the board
// moves on.
func Apply(ctx context.Context, b *board.Board, p *Plan, opts Options) ([]Outcome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	teachers := newTeacherIndex(b.Teachers())
	slots := newSlotIndex(b.Slots())

	outcomes := make([]Outcome, 0, len(p.Days))
	for _, dp := range p.Days {
		day, err := models.ParseDay(dp.Day)
		if err != nil {
			return outcomes, err
		}
		if err := visit(ctx, b, day); err != nil {
			return outcomes, fmt.Errorf("open %s: %w", day, err)
		}

		out := Outcome{Day: day}
		if dp.Replace {
			for _, pl := range b.Pending(day) {
				if err := b.Remove(pl.TeacherID); err != nil {
					return outcomes, err
				}
			}
		}
		for _, ref := range dp.Remove {
			id, err := teachers.resolve(ref)
			if err != nil {
				return outcomes, fmt.Errorf("%s: %w", day, err)
			}
			if err := b.Remove(id); err != nil {
				return outcomes, err
			}
		}
		for _, pl := range dp.Assign {
			teacherID, err := teachers.resolve(pl.Teacher)
			if err != nil {
				return outcomes, fmt.Errorf("%s: %w", day, err)
			}
			slotID, err := slots.resolve(pl.Slot)
			if err != nil {
				return outcomes, fmt.Errorf("%s: %w", day, err)
			}
			if err := b.Assign(teacherID, slotID); err != nil {
				var ruleErr *allocation.RuleError
				if !errors.As(err, &ruleErr) {
					return outcomes, err
				}
				out.Rejected = append(out.Rejected, Rejection{Teacher: pl.Teacher, Slot: pl.Slot, Reason: ruleErr.Reason, Err: err})
				if opts.Strict {
					outcomes = append(outcomes, out)
					return outcomes, fmt.Errorf("%w: %s into %s on %s: %v", ErrRejected, pl.Teacher, pl.Slot, day, err)
				}
			}
		}

		out.Operations = board.Operations(day, b.Pending(day), b.Snapshot(day))
		if !opts.DryRun {
			res, err := b.Save(ctx)
			if err != nil {
				outcomes = append(outcomes, out)
				return outcomes, fmt.Errorf("save %s: %w", day, err)
			}
			out.Result = res
			out.Saved = true
		}
		logger.Info("plan day applied",
			zap.Stringer("day", day),
			zap.Int("operations", len(out.Operations)),
			zap.Int("rejected", len(out.Rejected)),
			zap.Bool("saved", out.Saved),
		)
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// visit moves the board to day, discarding unsaved edits left by a dry run.
func visit(ctx context.Context, b *board.Board, day models.DayOfWeek) error {
	moved, err := b.RequestDay(ctx, day)
	if err != nil || moved {
		return err
	}
	return b.DiscardAndContinue(ctx)
}

type teacherIndex map[string]string

func newTeacherIndex(teachers []models.Teacher) teacherIndex {
	idx := make(teacherIndex, len(teachers)*2)
	for _, t := range teachers {
		idx[t.ID] = t.ID
		if t.StaffCode != "" {
			idx[strings.ToLower(t.StaffCode)] = t.ID
		}
	}
	return idx
}

func (idx teacherIndex) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if id, ok := idx[ref]; ok {
		return id, nil
	}
	if id, ok := idx[strings.ToLower(ref)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("teacher %q is not on the roster", ref)
}

type slotIndex map[string]string

func newSlotIndex(slots []models.Slot) slotIndex {
	idx := make(slotIndex, len(slots)*3)
	for _, s := range slots {
		idx[s.ID] = s.ID
		idx[strings.ToLower(string(s.Type))] = s.ID
		idx[strings.ToLower(s.Name)] = s.ID
	}
	return idx
}

func (idx slotIndex) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if id, ok := idx[ref]; ok {
		return id, nil
	}
	if id, ok := idx[strings.ToLower(ref)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", board.ErrUnknownSlot, ref)
}
