package bot

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// Default turn-timer seconds per difficulty. Harder opponents leave the
// human less thinking time.
const (
	easyTimerSeconds   = 15
	mediumTimerSeconds = 10
	hardTimerSeconds   = 5
)

// ChooseMove - pure move selection for the computer opponent. It holds no
// state and does no waiting; the thinking delay is the session controller's
// business.
func ChooseMove(board [9]string, mark, difficulty string) (int, error) {
	cells := availableCells(board)
	if len(cells) == 0 {
		return 0, ErrNoAvailableMoves
	}

	switch difficulty {
	case entity.EasyDifficulty:
		return randomMove(cells), nil
	case entity.MediumDifficulty:
		return heuristicMove(board, mark, cells), nil
	case entity.HardDifficulty:
		return minimaxMove(board, mark, cells), nil
	default:
		return 0, fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, difficulty)
	}
}

// DefaultTimerSeconds - the turn duration startAI falls back to when the
// caller picked none.
func DefaultTimerSeconds(difficulty string) int {
	switch difficulty {
	case entity.EasyDifficulty:
		return easyTimerSeconds
	case entity.HardDifficulty:
		return hardTimerSeconds
	default:
		return mediumTimerSeconds
	}
}

func availableCells(board [9]string) []int {
	cells := make([]int, 0, len(board))
	for i, cell := range board {
		if cell == entity.EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

func randomMove(cells []int) int {
	return cells[rand.Intn(len(cells))] //nolint: gosec // it's ok
}

// heuristicMove - takes a winning cell if one exists, otherwise blocks the
// opponent's winning cell, otherwise plays at random.
func heuristicMove(board [9]string, mark string, cells []int) int {
	if cell, ok := winningCell(board, mark, cells); ok {
		return cell
	}

	if cell, ok := winningCell(board, opponentOf(mark), cells); ok {
		return cell
	}

	return randomMove(cells)
}

func winningCell(board [9]string, mark string, cells []int) (int, bool) {
	for _, cell := range cells {
		board[cell] = mark
		status := entity.EvaluateStatus(board)
		board[cell] = entity.EmptyCell

		if status.IsOver && status.Winner == mark {
			return cell, true
		}
	}

	return 0, false
}

// minimaxMove - full-depth search. Prefers the fastest win and the slowest
// loss, which on a 3x3 board means it never loses.
func minimaxMove(board [9]string, mark string, cells []int) int {
	best := cells[0]
	bestScore := -100

	for _, cell := range cells {
		board[cell] = mark
		score := -negamax(board, opponentOf(mark), 1)
		board[cell] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			best = cell
		}
	}

	return best
}

// negamax scores the position for the side to move. A terminal position was
// produced by the previous mover, so it is a loss (or a draw) for the side
// to move; depth keeps the preference for short wins.
func negamax(board [9]string, mark string, depth int) int {
	status := entity.EvaluateStatus(board)
	if status.IsOver {
		if status.IsDraw {
			return 0
		}

		return depth - 10
	}

	best := -100
	for _, cell := range availableCells(board) {
		board[cell] = mark
		score := -negamax(board, opponentOf(mark), depth+1)
		board[cell] = entity.EmptyCell

		if score > best {
			best = score
		}
	}

	return best
}

func opponentOf(mark string) string {
	if mark == entity.PlayerX {
		return entity.PlayerO
	}

	return entity.PlayerX
}
