package entity

import (
	"encoding/json"
	"fmt"
)

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

const (
	EasyDifficulty   = "easy"
	MediumDifficulty = "medium"
	HardDifficulty   = "hard"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Game is the replicated state of a single round. The session controller on
// each side owns exactly one instance; a guest only ever replaces it wholesale
// through DeserializeGame or advances it by an accepted move or reset.
type Game struct {
	Board       [9]string `json:"board"`
	Turn        string    `json:"turn"`
	GameOver    bool      `json:"gameOver"`
	Winner      string    `json:"winner,omitempty"`
	WinningLine *[3]int   `json:"winningLine,omitempty"`
	Round       int       `json:"round"`
}

func NewGame() *Game {
	return &Game{
		Board: [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell},
		Turn:  PlayerX,
	}
}

// Status is the outcome of evaluating a board position.
type Status struct {
	IsOver bool
	Winner string
	Line   *[3]int
	IsDraw bool
}

// EvaluateStatus - scans the eight fixed triples in order and reports the
// first uniform non-empty one as the winner. A full board with no winning
// triple is a draw (Winner is PlayerTie).
func EvaluateStatus(board [9]string) Status {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			line := combo
			return Status{IsOver: true, Winner: a, Line: &line}
		}
	}

	// the round continues until every cell is filled
	for _, cell := range board {
		if cell == EmptyCell {
			return Status{}
		}
	}

	return Status{IsOver: true, Winner: PlayerTie, IsDraw: true}
}

// PlaceMove - writes playerMark into the given cell. It fails silently,
// returning false when the round is already over, the index is out of range,
// or the cell is occupied. It never changes whose turn it is.
func (that *Game) PlaceMove(cell int, playerMark string) bool {
	if that.GameOver {
		return false
	}

	if cell < 0 || cell >= len(that.Board) {
		return false
	}

	if that.Board[cell] != EmptyCell {
		return false
	}

	that.Board[cell] = playerMark

	return true
}

// SetTerminal - finalizes the round. The board is frozen from here on;
// PlaceMove refuses any further writes.
func (that *Game) SetTerminal(winner string, line *[3]int) {
	that.GameOver = true
	that.Winner = winner
	that.WinningLine = line
}

// SwitchTurn - flips the current turn marker between X and O.
func (that *Game) SwitchTurn() {
	if that.Turn == PlayerX {
		that.Turn = PlayerO
	} else {
		that.Turn = PlayerX
	}
}

// AdvanceRound - clears the board for the next round. X opens every round;
// fairness comes from the round-parity identity mapping, not from alternating
// the opening symbol.
func (that *Game) AdvanceRound() {
	that.Board = [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell}
	that.Turn = PlayerX
	that.GameOver = false
	that.Winner = EmptyCell
	that.WinningLine = nil
	that.Round++
}

// RestartRound - clears the board without advancing the round counter, so the
// same physical player keeps X.
func (that *Game) RestartRound() {
	round := that.Round
	that.AdvanceRound()
	that.Round = round
}

func (that *Game) IsDraw() bool {
	return that.GameOver && that.Winner == PlayerTie
}

// Serialize - full value round-trip used by the sync path. A guest adopts a
// board it did not derive locally only through this pair of functions.
func (that *Game) Serialize() ([]byte, error) {
	data, err := json.Marshal(that)
	if err != nil {
		return nil, fmt.Errorf("could not marshal game: %w", err)
	}

	return data, nil
}

func DeserializeGame(data []byte) (*Game, error) {
	game := &Game{}
	if err := json.Unmarshal(data, game); err != nil {
		return nil, fmt.Errorf("could not unmarshal game: %w", err)
	}

	return game, nil
}

// Clone - copy handed to observers so they can never mutate the live state.
func (that *Game) Clone() *Game {
	clone := *that
	if that.WinningLine != nil {
		line := *that.WinningLine
		clone.WinningLine = &line
	}

	return &clone
}
