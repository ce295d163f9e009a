package geom

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

type fixedRand []float64

func (f *fixedRand) Float64() float64 {
	v := (*f)[0]
	*f = (*f)[1:]
	return v
}

func TestBounds_ClampProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		margin := rapid.Float64Range(0, 500).Draw(rt, "margin")
		b := Bounds{Size: WorldSize, Margin: margin}
		p := Vec2{
			X: rapid.Float64Range(-1e6, 1e6).Draw(rt, "x"),
			Y: rapid.Float64Range(-1e6, 1e6).Draw(rt, "y"),
		}

		c := b.Clamp(p)
		if c.X < margin || c.X > WorldSize-margin || c.Y < margin || c.Y > WorldSize-margin {
			rt.Fatalf("clamped %v outside [%v, %v]", c, margin, WorldSize-margin)
		}
		if b.Contains(p) && c != p {
			rt.Fatalf("in-bounds point moved: %v -> %v", p, c)
		}
	})
}

func TestBounds_ClampNaN(t *testing.T) {
	b := DefaultBounds()
	c := b.Clamp(Vec2{X: math.NaN(), Y: math.Inf(1)})
	assert.Equal(t, DefaultMargin, c.X)
	assert.Equal(t, WorldSize-DefaultMargin, c.Y)
}

func TestFacing(t *testing.T) {
	tests := []struct {
		name string
		d    Vec2
		want string
	}{
		{"right", Vec2{5, 1}, FacingRight},
		{"left", Vec2{-5, 2}, FacingLeft},
		{"down", Vec2{1, 9}, FacingDown},
		{"up", Vec2{-1, -9}, FacingUp},
		{"tie prefers horizontal", Vec2{3, 3}, FacingRight},
		{"zero", Vec2{}, FacingDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Facing(tt.d))
		})
	}
}

func TestRandomWaypoint_WithinRangeAndBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := DefaultBounds()
		from := Vec2{
			X: rapid.Float64Range(b.Margin, b.Size-b.Margin).Draw(rt, "x"),
			Y: rapid.Float64Range(b.Margin, b.Size-b.Margin).Draw(rt, "y"),
		}
		seed := rapid.Uint64().Draw(rt, "seed")
		rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

		wp := RandomWaypoint(from, 600, 1400, b, rnd)
		if !b.Contains(wp) {
			rt.Fatalf("waypoint %v out of bounds", wp)
		}
		if d := Distance(from, wp); d > 1400+1e-6 {
			rt.Fatalf("waypoint too far: %v", d)
		}
	})
}

func TestRandomWaypoint_OppositeDirectionNearEdge(t *testing.T) {
	b := DefaultBounds()
	// 站在左边界，第一随机数 0.5 => 角度 π（向左），距离取最小值。
	from := Vec2{X: b.Margin + 10, Y: WorldSize / 2}
	rnd := fixedRand{0.5, 0}

	wp := RandomWaypoint(from, 600, 1400, b, &rnd)

	assert.Greater(t, wp.X, from.X, "should flip to the right")
	assert.InDelta(t, from.X+600, wp.X, 1e-6)
	assert.InDelta(t, from.Y, wp.Y, 1e-6)
}

func TestRandomWaypoint_NoFlipInOpenField(t *testing.T) {
	b := DefaultBounds()
	from := Vec2{X: WorldSize / 2, Y: WorldSize / 2}
	rnd := fixedRand{0.5, 0}

	wp := RandomWaypoint(from, 600, 1400, b, &rnd)
	assert.InDelta(t, from.X-600, wp.X, 1e-6)
}

func TestAwayFrom_IncreasesDistance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := Vec2{
			X: rapid.Float64Range(1000, 40000).Draw(rt, "x"),
			Y: rapid.Float64Range(1000, 40000).Draw(rt, "y"),
		}
		offset := Vec2{
			X: rapid.Float64Range(-350, 350).Draw(rt, "dx"),
			Y: rapid.Float64Range(-350, 350).Draw(rt, "dy"),
		}
		if offset.Len() < 1 {
			rt.Skip("threat on top of agent")
		}
		threat := from.Add(offset)
		r := rapid.Float64Range(0, 1).Draw(rt, "r")
		rnd := fixedRand{r}

		dir := AwayFrom(from, threat, 0.5, &rnd)
		next := from.Add(dir.Scale(40))
		if Distance(next, threat) <= Distance(from, threat) {
			rt.Fatalf("moved closer: %v -> %v", Distance(from, threat), Distance(next, threat))
		}
	})
}

func TestAwayFrom_CoincidentPoints(t *testing.T) {
	rnd := fixedRand{0.25}
	dir := AwayFrom(Vec2{10, 10}, Vec2{10, 10}, 0.5, &rnd)
	assert.InDelta(t, 1, dir.Len(), 1e-9)
}

func TestVec2_Basics(t *testing.T) {
	assert.InDelta(t, 5, Distance(Vec2{0, 0}, Vec2{3, 4}), 1e-9)
	assert.Equal(t, Vec2{}, Vec2{}.Normalize())
	r := Vec2{1, 0}.Rotate(math.Pi / 2)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.InDelta(t, 1, r.Y, 1e-9)
}
