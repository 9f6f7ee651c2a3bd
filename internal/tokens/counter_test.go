package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"codewiki/internal/types"
)

func TestCountString(t *testing.T) {
	c := NewCounter()
	assert.Zero(t, c.CountString(""))
	assert.Equal(t, 100, c.CountString(strings.Repeat("x", 400)))
}

func TestCountComponentUsesSource(t *testing.T) {
	c := NewCounter()
	comp := &types.Component{SourceCode: strings.Repeat("a", 800)}
	assert.Equal(t, 200, c.CountComponent(comp))
}

func TestCountComponentFallsBackToSpan(t *testing.T) {
	c := NewCounter()
	comp := &types.Component{StartLine: 1, EndLine: 10}
	assert.Equal(t, 150, c.CountComponent(comp), "10 lines at ~60 chars")
	assert.Zero(t, c.CountComponent(nil))
}

func TestCountComponents(t *testing.T) {
	reg := types.NewComponentRegistry()
	reg.Add(&types.Component{ID: "a", Name: "a", SourceCode: strings.Repeat("x", 400)})
	reg.Add(&types.Component{ID: "b", Name: "b", SourceCode: strings.Repeat("x", 400)})

	c := NewCounter()
	assert.Equal(t, 200, c.CountComponents(reg, []string{"a", "b", "missing"}))
}
