package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePerspective(t *testing.T) {
	p, err := ParsePerspective("regulator")
	require.NoError(t, err)
	assert.Equal(t, PerspectiveRegulator, p)

	_, err = ParsePerspective("Auditor")
	assert.Error(t, err)
}

func TestIsVisible(t *testing.T) {
	assert.True(t, IsVisible(PerspectiveCRO, PerspectiveCRO, PerspectiveInvestor))
	assert.False(t, IsVisible(PerspectiveRegulator, PerspectiveCRO, PerspectiveInvestor))
	assert.False(t, IsVisible(PerspectiveCRO))
}

func TestPanelsFor(t *testing.T) {
	ids := func(ps []Panel) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t,
		[]string{"agent_map", "timeline", "strategic_moves", "action_matrix", "brief"},
		ids(PanelsFor(PerspectiveCRO)))
	assert.Equal(t,
		[]string{"agent_map", "timeline", "risk_heatmap", "market_share", "brief"},
		ids(PanelsFor(PerspectiveRegulator)))
	assert.NotContains(t, ids(PanelsFor(PerspectiveInvestor)), "strategic_moves")
}
