package entity

// Physical player identities. They are stable across rounds; which symbol a
// physical player holds flips every round through PhysicalPlayerAsX.
const (
	PlayerOne = 1
	PlayerTwo = 2
)

// PhysicalPlayerAsX - the fairness rule: player one is X in even rounds,
// player two in odd rounds. Turn ownership is always recomputed from this,
// never stored, so a round jump applied by a full sync can not desync it.
func PhysicalPlayerAsX(round int) int {
	if round%2 == 0 {
		return PlayerOne
	}

	return PlayerTwo
}

// SymbolOf - the symbol a physical player holds in the given round.
func SymbolOf(physical, round int) string {
	if PhysicalPlayerAsX(round) == physical {
		return PlayerX
	}

	return PlayerO
}

// PhysicalOf - resolves a symbol back to the physical player holding it in
// the given round.
func PhysicalOf(symbol string, round int) int {
	if SymbolOf(PlayerOne, round) == symbol {
		return PlayerOne
	}

	return PlayerTwo
}

// Score keeps win counts keyed by physical player, so a symbolic winner must
// be resolved through the round mapping before scoring.
type Score struct {
	PlayerOne int `json:"p1"`
	PlayerTwo int `json:"p2"`
}

func (that *Score) AddWin(physical int) {
	if physical == PlayerOne {
		that.PlayerOne++
	} else {
		that.PlayerTwo++
	}
}

func (that Score) Wins(physical int) int {
	if physical == PlayerOne {
		return that.PlayerOne
	}

	return that.PlayerTwo
}

func (that *Score) Reset() {
	that.PlayerOne = 0
	that.PlayerTwo = 0
}
