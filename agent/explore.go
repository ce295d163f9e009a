package agent

import "github.com/BaSui01/npcagent/internal/geom"

// pickWaypoint 选择新的探索航点（世界边界内；裁剪后过近时取反方向）
func (a *Agent) pickWaypoint(t *tick) {
	bb := t.bb
	bb.MoveTarget = geom.RandomWaypoint(t.self.Pos(), exploreMinDist, exploreMaxDist, a.cfg.Bounds, a.rnd)
	bb.HasMoveTarget = true
	bb.ExploreSetAt = t.now
	bb.Mode = ModeExplore
}

// explore 朝航点直线前进；到达、超时或受阻时换航点
func (a *Agent) explore(t *tick) bool {
	bb := t.bb
	bb.Mode = ModeExplore
	if !bb.HasMoveTarget ||
		t.now.Sub(bb.ExploreSetAt) >= exploreTimeout ||
		geom.Distance(t.self.Pos(), bb.MoveTarget) <= exploreArrival {
		a.pickWaypoint(t)
	}
	if res := a.MoveTo(t, bb.MoveTarget, exploreArrival, false); res.Status == StatusFailed && res.Reason == reasonBlocked {
		a.pickWaypoint(t)
	}
	return true
}
