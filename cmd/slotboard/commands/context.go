package commands

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/board"
	"github.com/noah-isme/dept-slot-api/pkg/apiclient"
)

// AppContext holds the dependencies shared across all commands.
type AppContext struct {
	API     *apiclient.API
	Gateway board.Gateway
	Policy  allocation.Policy
	Logger  *zap.Logger
	// DeptID scopes the board and the summaries; set by the --dept flag.
	DeptID string
}

// OpenBoard loads a board for the configured department. Notifications are
// written to out, one per line.
func (a *AppContext) OpenBoard(ctx context.Context, out io.Writer) (*board.Board, error) {
	b := board.New(a.Gateway, board.Config{
		DeptID:   a.DeptID,
		Policy:   a.Policy,
		Notifier: writerNotifier(out),
		Logger:   a.Logger,
	})
	if err := b.Open(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func writerNotifier(out io.Writer) board.Notifier {
	return board.NotifierFunc(func(level board.Level, message string) {
		fmt.Fprintf(out, "[%s] %s\n", level, message)
	})
}

func (a *AppContext) requireDept() (string, error) {
	if a.DeptID == "" {
		return "", fmt.Errorf("--dept is required")
	}
	return a.DeptID, nil
}
