package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateStatus(t *testing.T) {
	t.Run("Returns PlayerX with line when Player X wins", func(t *testing.T) {
		// Given: a board where Player X holds the top row
		board := [9]string{
			PlayerX, PlayerX, PlayerX,
			EmptyCell, EmptyCell, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}

		// When: evaluating the board
		status := EvaluateStatus(board)

		// Then: it should report Player X as the winner on the top row
		assert.True(t, status.IsOver)
		assert.Equal(t, PlayerX, status.Winner)
		require.NotNil(t, status.Line)
		assert.Equal(t, [3]int{0, 1, 2}, *status.Line)
		assert.False(t, status.IsDraw)
	})

	t.Run("Returns PlayerO when Player O wins on a column", func(t *testing.T) {
		// Given: a board where Player O holds the left column
		board := [9]string{
			PlayerO, PlayerX, EmptyCell,
			PlayerO, PlayerX, EmptyCell,
			PlayerO, EmptyCell, EmptyCell,
		}

		// When: evaluating the board
		status := EvaluateStatus(board)

		// Then: it should report Player O as the winner on the left column
		assert.True(t, status.IsOver)
		assert.Equal(t, PlayerO, status.Winner)
		require.NotNil(t, status.Line)
		assert.Equal(t, [3]int{0, 3, 6}, *status.Line)
	})

	t.Run("Detects every fixed winning triple", func(t *testing.T) {
		for _, combo := range WinCombos {
			// Given: a board where Player X holds exactly this triple
			board := [9]string{}
			for _, cell := range combo {
				board[cell] = PlayerX
			}

			// When: evaluating the board
			status := EvaluateStatus(board)

			// Then: the triple should be reported as the winning line
			require.True(t, status.IsOver)
			require.Equal(t, PlayerX, status.Winner)
			require.NotNil(t, status.Line)
			require.Equal(t, combo, *status.Line)
		}
	})

	t.Run("Returns the first matching triple on a constructed double win", func(t *testing.T) {
		// Given: an unreachable board where X holds both the top row and the left column
		board := [9]string{
			PlayerX, PlayerX, PlayerX,
			PlayerX, EmptyCell, EmptyCell,
			PlayerX, EmptyCell, EmptyCell,
		}

		// When: evaluating the board
		status := EvaluateStatus(board)

		// Then: the top row wins because it is checked first
		require.NotNil(t, status.Line)
		assert.Equal(t, [3]int{0, 1, 2}, *status.Line)
	})

	t.Run("Returns a draw when the board is full with no winner", func(t *testing.T) {
		// Given: the full drawn board
		board := [9]string{
			PlayerX, PlayerO, PlayerX,
			PlayerX, PlayerO, PlayerO,
			PlayerO, PlayerX, PlayerX,
		}

		// When: evaluating the board
		status := EvaluateStatus(board)

		// Then: it should report a draw with no line
		assert.True(t, status.IsOver)
		assert.True(t, status.IsDraw)
		assert.Equal(t, PlayerTie, status.Winner)
		assert.Nil(t, status.Line)
	})

	t.Run("Reports nothing while the round is still open", func(t *testing.T) {
		// Given: a board with moves left and no winner
		board := [9]string{
			PlayerX, PlayerO, EmptyCell,
			EmptyCell, PlayerX, EmptyCell,
			EmptyCell, EmptyCell, PlayerO,
		}

		// When: evaluating the board
		status := EvaluateStatus(board)

		// Then: the round is not over
		assert.False(t, status.IsOver)
		assert.Equal(t, EmptyCell, status.Winner)
	})

	t.Run("X wins after playing 0 1 2 against O on 3 and 4", func(t *testing.T) {
		// Given: a fresh game
		game := NewGame()

		// When: X and O alternate until X completes the top row
		for _, move := range []struct {
			cell int
			mark string
		}{
			{0, PlayerX}, {3, PlayerO}, {1, PlayerX}, {4, PlayerO}, {2, PlayerX},
		} {
			require.True(t, game.PlaceMove(move.cell, move.mark))
		}
		status := EvaluateStatus(game.Board)

		// Then: X wins on the top row
		assert.True(t, status.IsOver)
		assert.Equal(t, PlayerX, status.Winner)
		require.NotNil(t, status.Line)
		assert.Equal(t, [3]int{0, 1, 2}, *status.Line)
	})
}

func TestGame_PlaceMove(t *testing.T) {
	t.Run("Places a mark into an empty cell", func(t *testing.T) {
		// Given: a fresh game
		game := NewGame()

		// When: X plays cell 4
		placed := game.PlaceMove(4, PlayerX)

		// Then: the mark is on the board and the turn marker is untouched
		assert.True(t, placed)
		assert.Equal(t, PlayerX, game.Board[4])
		assert.Equal(t, PlayerX, game.Turn)
	})

	t.Run("Second write to the same cell changes nothing", func(t *testing.T) {
		// Given: a game where cell 0 is taken by X
		game := NewGame()
		require.True(t, game.PlaceMove(0, PlayerX))

		// When: O tries the same cell
		placed := game.PlaceMove(0, PlayerO)

		// Then: the call reports false and the board is unchanged
		assert.False(t, placed)
		assert.Equal(t, PlayerX, game.Board[0])
	})

	t.Run("Rejects out of range indices", func(t *testing.T) {
		// Given: a fresh game
		game := NewGame()

		// When: indices outside [0,9) are played
		// Then: both are rejected without panicking
		assert.False(t, game.PlaceMove(-1, PlayerX))
		assert.False(t, game.PlaceMove(9, PlayerX))
	})

	t.Run("Rejects every move once the round is over", func(t *testing.T) {
		// Given: a finalized game
		game := NewGame()
		require.True(t, game.PlaceMove(0, PlayerX))
		game.SetTerminal(PlayerX, &[3]int{0, 1, 2})

		// When: any side tries to keep playing
		placed := game.PlaceMove(5, PlayerO)

		// Then: the board is frozen
		assert.False(t, placed)
		assert.Equal(t, EmptyCell, game.Board[5])
	})
}

func TestGame_AdvanceRound(t *testing.T) {
	t.Run("Clears the board and increments the round by exactly one", func(t *testing.T) {
		// Given: a finished first round won by O
		game := NewGame()
		game.PlaceMove(0, PlayerO)
		game.SwitchTurn()
		game.SetTerminal(PlayerO, &[3]int{0, 4, 8})

		// When: advancing to the next round
		game.AdvanceRound()

		// Then: the board is empty, X opens, and only the round counter survives
		assert.Equal(t, 1, game.Round)
		assert.Equal(t, PlayerX, game.Turn)
		assert.False(t, game.GameOver)
		assert.Equal(t, EmptyCell, game.Winner)
		assert.Nil(t, game.WinningLine)
		for _, cell := range game.Board {
			assert.Equal(t, EmptyCell, cell)
		}
	})

	t.Run("RestartRound keeps the round counter", func(t *testing.T) {
		// Given: a game in round 3 with moves on the board
		game := NewGame()
		game.Round = 3
		game.PlaceMove(4, PlayerX)

		// When: restarting the round in place
		game.RestartRound()

		// Then: the board is clear but the round number is unchanged
		assert.Equal(t, 3, game.Round)
		assert.Equal(t, EmptyCell, game.Board[4])
	})
}

func TestGame_Serialize(t *testing.T) {
	t.Run("Round-trips a mid-round state unchanged", func(t *testing.T) {
		// Given: a game a few moves in
		game := NewGame()
		game.PlaceMove(0, PlayerX)
		game.SwitchTurn()
		game.PlaceMove(4, PlayerO)
		game.SwitchTurn()
		game.Round = 2

		// When: serializing and deserializing
		data, err := game.Serialize()
		require.NoError(t, err)

		restored, err := DeserializeGame(data)
		require.NoError(t, err)

		// Then: the restored value equals the original
		assert.Equal(t, game, restored)
	})

	t.Run("Round-trips a terminal state with its winning line", func(t *testing.T) {
		// Given: a finished game with a winning line
		game := NewGame()
		game.Board = [9]string{PlayerX, PlayerX, PlayerX, PlayerO, PlayerO, EmptyCell, EmptyCell, EmptyCell, EmptyCell}
		game.SetTerminal(PlayerX, &[3]int{0, 1, 2})

		// When: serializing and deserializing
		data, err := game.Serialize()
		require.NoError(t, err)

		restored, err := DeserializeGame(data)
		require.NoError(t, err)

		// Then: terminal flags and the line survive the trip
		assert.True(t, restored.GameOver)
		assert.Equal(t, PlayerX, restored.Winner)
		require.NotNil(t, restored.WinningLine)
		assert.Equal(t, [3]int{0, 1, 2}, *restored.WinningLine)
	})

	t.Run("Rejects malformed input", func(t *testing.T) {
		// When: deserializing garbage
		_, err := DeserializeGame([]byte("{not json"))

		// Then: an error is returned
		require.Error(t, err)
	})
}

func TestGame_Clone(t *testing.T) {
	// Given: a finished game with a winning line
	game := NewGame()
	game.SetTerminal(PlayerX, &[3]int{2, 4, 6})

	// When: cloning and mutating the clone's line
	clone := game.Clone()
	clone.WinningLine[0] = 99
	clone.Board[0] = PlayerO

	// Then: the original is untouched
	assert.Equal(t, 2, game.WinningLine[0])
	assert.Equal(t, EmptyCell, game.Board[0])
}
