package agent

import "time"

// 行为参数（像素 / tick / 时长）
const (
	walkStep   = 20.0
	sprintStep = 40.0
	selfRadius = 32.0

	interactRange  = 56.0  // 采集植物、拾取、搜刮尸体
	meleeRange     = 110.0 // 挥砍树木、石头、木桶、动物
	rangedRange    = 400.0 // 远程武器射程
	moveArrival    = 40.0  // 计划 move 步骤的到达阈值
	exploreArrival = 60.0

	exploreMinDist = 400.0
	exploreMaxDist = 1200.0
	exploreTimeout = 60 * time.Second

	stuckSampleTicks  = 30
	stuckMinMove      = 40.0
	stuckSamples      = 3
	stuckScanCooldown = 5 * time.Second

	threatCheckTicks = 5
	threatRadius     = 350.0
	fleeJitter       = 0.5 // 弧度，约 ±28°
	minFleeDuration  = 4 * time.Second

	criticalNeed         = 20.0
	lowNeed              = 40.0
	lowNeedInterval      = 3 * time.Second
	naturalDrinkInterval = 2 * time.Second
	waterReach           = 64.0 // 距最近一次站在水中的位置多远仍算水边
	consumeCooldown      = 1500 * time.Millisecond

	waterCheckInterval = 5 * time.Second
	fillAmountML       = uint32(250)

	armingCheckInterval = 5 * time.Second
	equipRetryInterval  = 10 * time.Second

	respawnCooldown = 5 * time.Second

	autonomousEvalTicks = 10

	swingInterval   = 500 * time.Millisecond
	harvestInterval = 700 * time.Millisecond
	gatherInterval  = time.Second
	lootInterval    = 250 * time.Millisecond
	stepTimeout     = 30 * time.Second

	lowHealthThreshold = 30.0

	huntRadius        = 600.0
	resourceRadius    = 800.0
	treeScanRadius    = 600.0
	barrelScanRadius  = 500.0
	corpseScanRadius  = 600.0
	shortGatherRadius = 200.0
	droppedScanRadius = 300.0
	chatRadius        = 300.0
	snapshotRadius    = 800.0

	chatInterval = 90 * time.Second
	chatChance   = 0.02
)

// 冷却键
const (
	cdRespawn = "respawn"
	cdEat     = "eat"
	cdDrink   = "drink"
	cdSwing   = "swing"
	cdFire    = "fire"
	cdPickup  = "pickup"
	cdCraft   = "craft"
	cdLoot    = "loot"
)
