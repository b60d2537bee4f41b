// Package turnorder advances combat rounds and turns.
package turnorder

// Result is the state after one advancement.
type Result struct {
	Round int
	Turn  int
	// Current is the ordinal of the acting combatant. Only meaningful when
	// HasCurrent is true.
	Current    int
	HasCurrent bool
}

// Advance moves a combat to its next turn. Passing the last combatant wraps
// to turn 0 of the next round. With no combatants every call starts a new
// round and there is no current combatant.
func Advance(round, turn, count int) Result {
	next := turn + 1
	res := Result{Round: round, Turn: next}
	if next >= count {
		res.Round = round + 1
		res.Turn = 0
	}
	if res.Turn < count {
		res.Current = res.Turn
		res.HasCurrent = true
	}
	return res
}
