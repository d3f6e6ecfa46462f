package rotation

// Common data layouts.
var (
	// 2 north, 3 south, 4 west, 5 east.
	wallFacing = map[Dir]uint8{North: 2, South: 3, West: 4, East: 5}
	// 0 down, 1 up, then wallFacing.
	fullFacing = map[Dir]uint8{Down: 0, Up: 1, North: 2, South: 3, West: 4, East: 5}
	// 0 south, 1 west, 2 north, 3 east.
	horizontal = map[Dir]uint8{South: 0, West: 1, North: 2, East: 3}
)

func sixteenWay() map[Op]map[uint8]uint8 {
	left := map[uint8]uint8{}
	ew := map[uint8]uint8{}
	ns := map[uint8]uint8{}
	for i := uint8(0); i < 16; i++ {
		left[i] = (i + 12) & 15
		ew[i] = (16 - i) & 15
		ns[i] = (24 - i) & 15
	}
	return map[Op]map[uint8]uint8{RotateLeft: left, FlipEastWest: ew, FlipNorthSouth: ns}
}

var railLeft = map[uint8]uint8{0: 1, 1: 0, 2: 4, 4: 3, 3: 5, 5: 2}

func rails(curves bool) map[Op]map[uint8]uint8 {
	left := map[uint8]uint8{}
	for k, v := range railLeft {
		left[k] = v
	}
	ew := map[uint8]uint8{2: 3, 3: 2}
	ns := map[uint8]uint8{4: 5, 5: 4}
	if curves {
		left[6], left[9], left[8], left[7] = 9, 8, 7, 6
		ew[6], ew[7], ew[9], ew[8] = 7, 6, 8, 9
		ns[6], ns[9], ns[7], ns[8] = 9, 6, 8, 7
	}
	return map[Op]map[uint8]uint8{RotateLeft: left, FlipEastWest: ew, FlipNorthSouth: ns}
}

// DefaultFamilies describes the oriented blocks of the 1.12 block set.
func DefaultFamilies() []Family {
	return []Family{
		{
			Name:   "torch",
			Kind:   Directional,
			Blocks: []string{"torch", "redstone_torch", "unlit_redstone_torch"},
			Mask:   0x7,
			Dirs:   map[Dir]uint8{East: 1, West: 2, South: 3, North: 4, Up: 5},
		},
		{
			Name: "wall",
			Kind: Directional,
			Blocks: []string{
				"ladder", "wall_sign", "furnace", "lit_furnace",
				"chest", "trapped_chest", "ender_chest", "wall_banner",
			},
			Mask: 0x7,
			Dirs: wallFacing,
		},
		{
			Name: "facing",
			Kind: Directional,
			Blocks: []string{
				"dispenser", "dropper", "piston", "sticky_piston", "piston_head",
				"observer", "end_rod",
				"white_shulker_box", "orange_shulker_box", "magenta_shulker_box",
				"light_blue_shulker_box", "yellow_shulker_box", "lime_shulker_box",
				"pink_shulker_box", "gray_shulker_box", "silver_shulker_box",
				"cyan_shulker_box", "purple_shulker_box", "blue_shulker_box",
				"brown_shulker_box", "green_shulker_box", "red_shulker_box",
				"black_shulker_box",
			},
			Mask: 0x7,
			Dirs: fullFacing,
		},
		{
			Name:   "hopper",
			Kind:   Directional,
			Blocks: []string{"hopper"},
			Mask:   0x7,
			Dirs:   map[Dir]uint8{Down: 0, North: 2, South: 3, West: 4, East: 5},
		},
		{
			Name:   "button",
			Kind:   Directional,
			Blocks: []string{"stone_button", "wooden_button"},
			Mask:   0x7,
			Dirs:   map[Dir]uint8{Down: 0, East: 1, West: 2, South: 3, North: 4, Up: 5},
		},
		{
			Name:   "skull",
			Kind:   Directional,
			Blocks: []string{"skull"},
			Mask:   0x7,
			Dirs:   map[Dir]uint8{Up: 1, North: 2, South: 3, West: 4, East: 5},
		},
		{
			Name: "horizontal",
			Kind: Directional,
			Blocks: []string{
				"pumpkin", "lit_pumpkin", "bed", "fence_gate",
				"spruce_fence_gate", "birch_fence_gate", "jungle_fence_gate",
				"dark_oak_fence_gate", "acacia_fence_gate",
				"unpowered_repeater", "powered_repeater",
				"unpowered_comparator", "powered_comparator",
				"tripwire_hook", "cocoa", "anvil",
				"white_glazed_terracotta", "orange_glazed_terracotta",
				"magenta_glazed_terracotta", "light_blue_glazed_terracotta",
				"yellow_glazed_terracotta", "lime_glazed_terracotta",
				"pink_glazed_terracotta", "gray_glazed_terracotta",
				"silver_glazed_terracotta", "cyan_glazed_terracotta",
				"purple_glazed_terracotta", "blue_glazed_terracotta",
				"brown_glazed_terracotta", "green_glazed_terracotta",
				"red_glazed_terracotta", "black_glazed_terracotta",
			},
			Mask: 0x3,
			Dirs: horizontal,
		},
		{
			Name:   "trapdoor",
			Kind:   Directional,
			Blocks: []string{"trapdoor", "iron_trapdoor"},
			Mask:   0x3,
			Dirs:   map[Dir]uint8{South: 0, North: 1, East: 2, West: 3},
			TopBit: 0x8,
		},
		{
			Name:   "vine",
			Kind:   Bitmask,
			Blocks: []string{"vine"},
			Mask:   0xF,
			Dirs:   map[Dir]uint8{South: 1, West: 2, North: 4, East: 8},
		},
		{
			Name:   "log",
			Kind:   Axis,
			Blocks: []string{"log", "log2", "hay_block", "bone_block", "purpur_pillar"},
			Mask:   0xC,
			Axes:   map[Orientation]uint8{AxisY: 0, AxisX: 4, AxisZ: 8},
		},
		{
			Name:   "quartz",
			Kind:   Axis,
			Blocks: []string{"quartz_block"},
			Mask:   0x7,
			Axes:   map[Orientation]uint8{AxisY: 2, AxisZ: 3, AxisX: 4},
		},
		{
			Name: "stairs",
			Kind: Stairs,
			Blocks: []string{
				"oak_stairs", "stone_stairs", "brick_stairs", "stone_brick_stairs",
				"nether_brick_stairs", "sandstone_stairs", "spruce_stairs",
				"birch_stairs", "jungle_stairs", "quartz_stairs", "acacia_stairs",
				"dark_oak_stairs", "red_sandstone_stairs", "purpur_stairs",
			},
		},
		{
			Name:   "slab",
			Kind:   Slab,
			Blocks: []string{"stone_slab", "wooden_slab", "stone_slab2", "purpur_slab"},
		},
		{
			Name: "door",
			Kind: Door,
			Blocks: []string{
				"wooden_door", "iron_door", "spruce_door", "birch_door",
				"jungle_door", "acacia_door", "dark_oak_door",
			},
		},
		{
			Name:   "rail",
			Kind:   Permutation,
			Blocks: []string{"rail"},
			Mask:   0xF,
			Perms:  rails(true),
		},
		{
			Name:   "powered_rail",
			Kind:   Permutation,
			Blocks: []string{"golden_rail", "detector_rail", "activator_rail"},
			Mask:   0x7,
			Perms:  rails(false),
		},
		{
			Name:   "lever",
			Kind:   Permutation,
			Blocks: []string{"lever"},
			Mask:   0x7,
			Perms: map[Op]map[uint8]uint8{
				RotateLeft:     {4: 2, 2: 3, 3: 1, 1: 4, 5: 6, 6: 5, 0: 7, 7: 0},
				FlipEastWest:   {1: 2, 2: 1},
				FlipNorthSouth: {3: 4, 4: 3},
				FlipVertical:   {5: 7, 7: 5, 6: 0, 0: 6},
			},
		},
		{
			Name:   "standing_sign",
			Kind:   Permutation,
			Blocks: []string{"standing_sign", "standing_banner"},
			Mask:   0xF,
			Perms:  sixteenWay(),
		},
	}
}
