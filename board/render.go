package board

import "strings"

// Render draws the board one row per line. Unknown cells are '~', hits 'H'
// and misses ' '. With reveal set, unshot ship cells are drawn as 'O'.
func (b *Board) Render(reveal bool) string {
	var sb strings.Builder
	sb.Grow((b.rules.Width + 2) * b.rules.Height)
	for y := 0; y < b.rules.Height; y++ {
		for x := 0; x < b.rules.Width; x++ {
			var ch byte
			switch b.PointState(x, y) {
			case Hit:
				ch = 'H'
			case Miss:
				ch = ' '
			default:
				ch = '~'
				if reveal && b.Occupied(x, y) {
					ch = 'O'
				}
			}
			sb.WriteByte(ch)
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}

func (b *Board) String() string {
	return b.Render(false)
}
