package backend

// 后端 reducer 名称（参数按位置传递）
const (
	// (new_x, new_y, client_timestamp_ms, is_sprinting, facing_direction, client_sequence)
	ReducerUpdatePosition = "update_player_position_simple"
	// ()
	ReducerUseEquippedItem = "use_equipped_item"
	// (target_world_x, target_world_y)
	ReducerFireProjectile = "fire_projectile"
	// (resource_id)
	ReducerInteractHarvestable = "interact_with_harvestable_resource"
	// (dropped_item_id)
	ReducerPickupDroppedItem = "pickup_dropped_item"
	// (item_instance_id)
	ReducerConsumeItem = "consume_item"
	// (item_instance_id)
	ReducerConsumeWaterContainer = "consume_filled_water_container"
	// (recipe_id)
	ReducerStartCrafting = "start_crafting"
	// (item_instance_id)
	ReducerSetActiveItem = "set_active_item_reducer"
	// (text)
	ReducerSendMessage = "send_message"
	// ()
	ReducerDrinkWater = "drink_water"
	// (item_instance_id, fill_amount_ml)
	ReducerFillWaterContainer = "fill_water_container_from_natural_source"
	// (corpse_id, source_slot_index)
	ReducerQuickMoveFromCorpse = "quick_move_from_corpse"
	// ()
	ReducerRespawnRandomly = "respawn_randomly"
	// (username, role)
	ReducerRegisterNPC = "register_npc"
)
