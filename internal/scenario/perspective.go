package scenario

import (
	"fmt"
	"slices"
	"strings"
)

// Perspective is an analytical lens. It changes which brief is requested and
// which panels render, never the underlying simulation state.
type Perspective string

const (
	PerspectiveCRO       Perspective = "CRO"
	PerspectiveRegulator Perspective = "Regulator"
	PerspectiveInvestor  Perspective = "Investor"
)

// DefaultPerspective is used for new sessions.
const DefaultPerspective = PerspectiveCRO

// Perspectives lists every lens.
var Perspectives = []Perspective{PerspectiveCRO, PerspectiveRegulator, PerspectiveInvestor}

// ParsePerspective matches a perspective name case-insensitively.
func ParsePerspective(s string) (Perspective, error) {
	for _, p := range Perspectives {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown perspective %q (want one of CRO, Regulator, Investor)", s)
}

// IsVisible reports whether content shown for allowed is visible under current.
func IsVisible(current Perspective, allowed ...Perspective) bool {
	return slices.Contains(allowed, current)
}

// Panel is a dashboard section gated by perspective.
type Panel struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	ShowFor []Perspective `json:"show_for"`
}

// Panels is the dashboard layout in display order.
var Panels = []Panel{
	{ID: "agent_map", Title: "Agent Map", ShowFor: Perspectives},
	{ID: "timeline", Title: "Round Timeline", ShowFor: Perspectives},
	{ID: "strategic_moves", Title: "Available Strategic Moves", ShowFor: []Perspective{PerspectiveCRO}},
	{ID: "action_matrix", Title: "Strategic Action Matrix", ShowFor: []Perspective{PerspectiveCRO, PerspectiveInvestor}},
	{ID: "risk_heatmap", Title: "Risk/Reward Heatmap", ShowFor: []Perspective{PerspectiveRegulator, PerspectiveInvestor}},
	{ID: "market_share", Title: "Market Share", ShowFor: []Perspective{PerspectiveInvestor, PerspectiveRegulator}},
	{ID: "brief", Title: "Outcome Brief", ShowFor: Perspectives},
}

// PanelsFor returns the panels visible under p.
func PanelsFor(p Perspective) []Panel {
	var out []Panel
	for _, panel := range Panels {
		if IsVisible(p, panel.ShowFor...) {
			out = append(out, panel)
		}
	}
	return out
}
