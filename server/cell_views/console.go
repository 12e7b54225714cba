package cell_views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const block = "██"

var (
	categoryStyles = map[Category]lipgloss.Style{
		ProductVisited: lipgloss.NewStyle().Foreground(lipgloss.Color(getFill(ProductVisited))),
		ProductPending: lipgloss.NewStyle().Foreground(lipgloss.Color(getFill(ProductPending))),
		Occupied:       lipgloss.NewStyle().Foreground(lipgloss.Color(getFill(Occupied))),
		Free:           lipgloss.NewStyle().Foreground(lipgloss.Color(getFill(Free))),
	}
	headStyleText   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6347")).Bold(true)
	statusStyleText = lipgloss.NewStyle().Bold(true)
)

// RenderText draws the board for a terminal: one colored block per cell, the head as "@@",
// and the status line underneath. Without color support the blocks degrade to plain text,
// so categories are told apart by their glyphs as well.
func RenderText(board Board) string {
	var sb strings.Builder
	for _, row := range board.Cells {
		for _, cell := range row {
			if cell.Head {
				sb.WriteString(headStyleText.Render("@@"))
				continue
			}
			sb.WriteString(categoryStyles[cell.Category].Render(glyph(cell.Category)))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(statusStyleText.Render(board.Status))
	return sb.String()
}

func glyph(category Category) string {
	switch category {
	case ProductVisited:
		return "++"
	case ProductPending:
		return "**"
	case Occupied:
		return block
	}
	return "  "
}
