package board

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Operations turns a day's pending placements into batch operations against
// its snapshot. Every pending placement becomes a create, or an update when
// the teacher held another slot in the snapshot; snapshot teachers missing
// from pending become deletes. An untouched day therefore still yields
// creates, which the server treats as no-ops. Deletes come first.
func Operations(day models.DayOfWeek, pending, snapshot []allocation.Placement) []dto.BatchAssignment {
	prior := make(map[string]string, len(snapshot))
	for _, p := range snapshot {
		prior[p.TeacherID] = p.SlotID
	}
	kept := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		kept[p.TeacherID] = struct{}{}
	}

	ops := make([]dto.BatchAssignment, 0, len(pending)+len(snapshot))
	for _, p := range snapshot {
		if _, ok := kept[p.TeacherID]; ok {
			continue
		}
		ops = append(ops, dto.BatchAssignment{TeacherID: p.TeacherID, SlotID: p.SlotID, DayOfWeek: day, Action: dto.ActionDelete})
	}
	for _, p := range pending {
		action := dto.ActionCreate
		if slot, ok := prior[p.TeacherID]; ok && slot != p.SlotID {
			action = dto.ActionUpdate
		}
		ops = append(ops, dto.BatchAssignment{TeacherID: p.TeacherID, SlotID: p.SlotID, DayOfWeek: day, Action: action})
	}
	return ops
}

// saveLocked runs the save protocol. It must be called with b.mu held and
// releases it before touching the network. On failure the board returns to
// the state it was in when the save started and pending is left alone.
func (b *Board) saveLocked(ctx context.Context) (*dto.BatchResult, error) {
	day := b.day
	ops := Operations(day, b.pending[day], b.snapshot[day])

	for _, op := range ops {
		if op.TeacherID == "" {
			b.mu.Unlock()
			b.notify.Notify(LevelError, "Cannot determine the teacher for this save")
			return nil, ErrMissingTeacher
		}
	}
	if len(ops) == 0 {
		if b.state != StateConfirmingDiscard {
			b.state = StateClean
		}
		b.mu.Unlock()
		b.notify.Notify(LevelSuccess, fmt.Sprintf("No changes to save for %s", day))
		return &dto.BatchResult{}, nil
	}

	resume := b.state
	b.state = StateSaving
	b.mu.Unlock()

	res, err := b.gw.SaveBatch(ctx, ops)
	if err != nil {
		b.mu.Lock()
		b.state = resume
		b.mu.Unlock()
		b.logger.Warn("save failed", zap.Stringer("day", day), zap.Int("operations", len(ops)), zap.Error(err))
		b.notify.Notify(LevelError, fmt.Sprintf("Failed to save assignments for %s: %v", day, err))
		return nil, err
	}

	if failed := res.Failed(); len(failed) > 0 {
		b.notify.Notify(LevelError, fmt.Sprintf("Saved %d of %d operations for %s; first failure: %s",
			res.SuccessCount, res.TotalOperations, day, describeFailure(failed[0])))
	} else {
		b.notify.Notify(LevelSuccess, fmt.Sprintf("Saved %d assignments for %s", res.SuccessCount, day))
	}

	assignments, ferr := b.fetchDay(ctx, day)

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case ferr == nil:
		own, outside := b.splitLocked(assignments)
		placements := toPlacements(own)
		b.outside[day] = toPlacements(outside)
		b.snapshot[day] = placements
		b.pending[day] = allocation.ClonePlacements(placements)
		b.state = StateClean
	case len(res.Failed()) == 0:
		b.snapshot[day] = allocation.ClonePlacements(b.pending[day])
		b.state = StateClean
		b.logger.Warn("refresh after save failed", zap.Stringer("day", day), zap.Error(ferr))
	default:
		b.state = StateDirty
		b.logger.Warn("refresh after partial save failed", zap.Stringer("day", day), zap.Error(ferr))
		b.notify.Notify(LevelError, fmt.Sprintf("Failed to reload assignments for %s", day))
	}
	return res, nil
}

func describeFailure(r dto.OperationResult) string {
	msg := r.Error
	if msg == "" {
		msg = r.Reason
	}
	return fmt.Sprintf("%s teacher %s: %s", r.Action, r.TeacherID, msg)
}
