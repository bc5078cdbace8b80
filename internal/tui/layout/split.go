package layout

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	minSidebarWidth = 18
	maxSidebarWidth = 32
	// below this terminal width the sidebar is hidden
	minWidthForSidebar = 70
)

// SplitPane places a fixed sidebar next to the main column
type SplitPane struct {
	Width  int
	Height int

	// Fraction of the width given to the sidebar, clamped to
	// [minSidebarWidth, maxSidebarWidth]
	SidebarRatio float64

	ShowSidebar bool
}

// NewSplitPane creates a split pane layout
func NewSplitPane(width, height int) *SplitPane {
	return &SplitPane{
		Width:        width,
		Height:       height,
		SidebarRatio: 0.25,
		ShowSidebar:  true,
	}
}

// SetSize updates the pane dimensions
func (s *SplitPane) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// Toggle shows or hides the sidebar
func (s *SplitPane) Toggle() {
	s.ShowSidebar = !s.ShowSidebar
}

// SidebarVisible reports whether the sidebar is drawn at the current size
func (s *SplitPane) SidebarVisible() bool {
	return s.ShowSidebar && s.Width >= minWidthForSidebar
}

// SidebarWidth returns the width of the sidebar, 0 when hidden
func (s *SplitPane) SidebarWidth() int {
	if !s.SidebarVisible() {
		return 0
	}
	w := int(float64(s.Width) * s.SidebarRatio)
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	return w
}

// MainWidth returns the width of the main column
func (s *SplitPane) MainWidth() int {
	return s.Width - s.SidebarWidth()
}

// Render joins the sidebar and the main column
func (s *SplitPane) Render(sidebar, main string) string {
	mainStyle := lipgloss.NewStyle().Width(s.MainWidth()).Height(s.Height)
	if !s.SidebarVisible() {
		return mainStyle.Render(main)
	}
	sideStyle := lipgloss.NewStyle().Width(s.SidebarWidth()).Height(s.Height)
	return lipgloss.JoinHorizontal(lipgloss.Top, sideStyle.Render(sidebar), mainStyle.Render(main))
}
