package changelog

import "maps"

// IconTable maps a category key to the emoji shown in front of its header.
type IconTable map[string]string

var defaultIcons = IconTable{
	"3dsmax":    "\U0001fad6", // :teapot:
	"channel":   "\U0001f4c8", // :chart_with_upwards_trend:
	"char":      "\U0001f3c2", // :snowboarder:
	"character": "\U0001f3c2", // :snowboarder:
	"chop":      "\U0001f4c8", // :chart_with_upwards_trend:
	"cop2":      "\U0001f3ab", // :ticket:
	"crowd":     "\U0001f38e", // :dolls:
	"doc":       "\U0001f4c4", // :page_facing_up:
	"dop":       "\U0001f30a", // :ocean:
	"expr":      "\U0001f4e7", // :email:
	"fbx":       "\U0001f381", // :gift:
	"fur":       "\U0001f98a", // :fox_face:
	"general":   "\U0001f365", // :fish_cake:
	"geo":       "\U0001f371", // :bento:
	"gl":        "\u2699",     // :gear:
	"gltf":      "",
	"gplay":     "",
	"grave":     "\U0001f4cc", // :pushpin:
	"handle":    "\U0001f579", // :joystick:
	"hapi":      "\U0001f529", // :nut_and_bolt:
	"hom":       "\U0001f40d", // :snake:
	"hdk":       "\U0001f9f0", // :toolbox:
	"hqueue":    "\U0001f39b", // :control_knobs:
	"image":     "\U0001f303", // :night_with_stars:
	"jive":      "\U0001f4c8", // :chart_with_upwards_trend:
	"karma":     "\U0001f341", // :maple_leaf:
	"launcher":  "\U0001f680", // :rocket:
	"license":   "\U0001f511", // :key:
	"linux":     "\U0001f427", // :penguin:
	"lop":       "\U0001f4a1", // :bulb:
	"mantra":    "\U0001f4fd", // :film_projector:
	"maya":      "\U0001f5ff", // :moyai:
	"mplay":     "\U0001f4fc", // :vhs:
	"op":        "\u2699",     // :gear:
	"opencl":    "\U0001f680", // :rocket:
	"osx":       "\U0001f34f", // :green_apple:
	"otl":       "\U0001f4e6", // :package:
	"pdg":       "\U0001f3a9", // :tophat:
	"pop":       "\U0001f4a7", // :droplet:
	"pyro":      "\U0001f525", // :flame:
	"python":    "\U0001f40d", // :snake:
	"render":    "\U0001f39e", // :film_frames:
	"rop":       "\U0001f39e", // :film_frames:
	"soho":      "\U0001f40d", // :snake:
	"solaris":   "\U0001f4a5", // :boom:
	"sop":       "\U0001f9e0", // :brain:
	"top":       "\U0001f3a9", // :tophat:
	"ui":        "\U0001f39a", // :level_slider:
	"unity":     "\U0001f30f", // :earth_asia:
	"unreal":    "\U0001f52e", // :crystal_ball:
	"vex":       "\U0001f393", // :mortar_board:
	"vop":       "\U0001f393", // :mortar_board:
	"windows":   "\U0001f4ce", // :paperclip:
}

// DefaultIcons returns a copy of the built-in icon table.
func DefaultIcons() IconTable {
	return maps.Clone(defaultIcons)
}

// Icon returns the icon of a category, unknown categories have no icon.
func (t IconTable) Icon(category string) string {
	return t[category]
}
