// Package geom 提供世界坐标几何工具：距离、边界裁剪、朝向推导与随机航点。
package geom

import "math"

// 世界常量（像素）
const (
	TileSize      = 48.0
	WorldTiles    = 1000.0
	WorldSize     = TileSize * WorldTiles
	DefaultMargin = 100.0

	FacingUp    = "up"
	FacingDown  = "down"
	FacingLeft  = "left"
	FacingRight = "right"

	defaultFacing = FacingDown
	fullCircle    = 2 * math.Pi
	epsilonLength = 1e-9
)

// Rand 是几何函数所需的最小随机源，*rand.Rand 满足此接口。
type Rand interface {
	Float64() float64
}

// Vec2 二维向量 / 世界坐标
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) IsZero() bool         { return v.Len() < epsilonLength }

// Normalize returns the unit vector, or the zero vector for a zero input.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l < epsilonLength {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Rotate rotates v by theta radians.
func (v Vec2) Rotate(theta float64) Vec2 {
	s, c := math.Sincos(theta)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Distance 欧氏距离
func Distance(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Bounds 世界边界（正方形，[Margin, Size-Margin]）
type Bounds struct {
	Size   float64
	Margin float64
}

// DefaultBounds 默认世界边界
func DefaultBounds() Bounds {
	return Bounds{Size: WorldSize, Margin: DefaultMargin}
}

func (b Bounds) lo() float64 { return b.Margin }

func (b Bounds) hi() float64 {
	h := b.Size - b.Margin
	if h < b.Margin {
		return b.Margin
	}
	return h
}

// Clamp 将坐标裁剪到世界边界内（含端点）。NaN 分量落到下边界。
func (b Bounds) Clamp(p Vec2) Vec2 {
	return Vec2{clamp(p.X, b.lo(), b.hi()), clamp(p.Y, b.lo(), b.hi())}
}

// Contains reports whether p lies inside the margins.
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.lo() && p.X <= b.hi() && p.Y >= b.lo() && p.Y <= b.hi()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Facing 根据移动向量的主轴推导朝向；y 轴向下为正。零向量返回 "down"。
func Facing(d Vec2) string {
	if d.IsZero() {
		return defaultFacing
	}
	if math.Abs(d.X) >= math.Abs(d.Y) {
		if d.X < 0 {
			return FacingLeft
		}
		return FacingRight
	}
	if d.Y < 0 {
		return FacingUp
	}
	return FacingDown
}

// RandomWaypoint 在 [minDist, maxDist] 范围内随机选择航点，并裁剪到边界。
// 如果裁剪后距离不足 minDist/2（靠近边界），改用相反方向。
func RandomWaypoint(from Vec2, minDist, maxDist float64, b Bounds, rnd Rand) Vec2 {
	if maxDist < minDist {
		maxDist = minDist
	}
	dir := Vec2{1, 0}.Rotate(rnd.Float64() * fullCircle)
	dist := minDist + rnd.Float64()*(maxDist-minDist)
	return waypointAlong(from, dir, dist, minDist, b)
}

func waypointAlong(from, dir Vec2, dist, minDist float64, b Bounds) Vec2 {
	target := b.Clamp(from.Add(dir.Scale(dist)))
	if Distance(from, target) < minDist/2 {
		target = b.Clamp(from.Sub(dir.Scale(dist)))
	}
	return target
}

// AwayFrom 返回从 threat 指向 from 的单位方向，并加入 ±jitter 弧度的随机偏转。
// 两点重合时随机选择方向。
func AwayFrom(from, threat Vec2, jitter float64, rnd Rand) Vec2 {
	dir := from.Sub(threat).Normalize()
	if dir.IsZero() {
		return Vec2{1, 0}.Rotate(rnd.Float64() * fullCircle)
	}
	if jitter > 0 {
		dir = dir.Rotate((rnd.Float64()*2 - 1) * jitter)
	}
	return dir
}
