package wltest

// request describes one client request: its name, its argument signature
// and, for requests creating an object, the interface of the new object.
//
// Signature letters: u uint, i int, f fixed, s string, o object, n new_id,
// h fd, a array.
type request struct {
	name    string
	sig     string
	creates string
}

var requests = map[string][]request{
	"wl_display": {
		{name: "sync", sig: "n", creates: "wl_callback"},
		{name: "get_registry", sig: "n", creates: "wl_registry"},
	},
	"wl_registry": {
		{name: "bind", sig: "usun"},
	},
	"wl_shm": {
		{name: "create_pool", sig: "nhi", creates: "wl_shm_pool"},
		{name: "release"},
	},
	"wl_shm_pool": {
		{name: "create_buffer", sig: "niiiiu", creates: "wl_buffer"},
		{name: "destroy"},
		{name: "resize", sig: "i"},
	},
	"wl_buffer": {
		{name: "destroy"},
	},
	"wl_output": {
		{name: "release"},
	},
	"wl_seat": {
		{name: "get_pointer", sig: "n", creates: "wl_pointer"},
		{name: "get_keyboard", sig: "n", creates: "wl_keyboard"},
		{name: "get_touch", sig: "n", creates: "wl_touch"},
		{name: "release"},
	},
	"wl_keyboard": {
		{name: "release"},
	},
	"zwp_virtual_keyboard_manager_v1": {
		{name: "create_virtual_keyboard", sig: "on", creates: "zwp_virtual_keyboard_v1"},
	},
	"zwp_virtual_keyboard_v1": {
		{name: "keymap", sig: "uhu"},
		{name: "key", sig: "uuu"},
		{name: "modifiers", sig: "uuuu"},
		{name: "destroy"},
	},
	"zwlr_virtual_pointer_manager_v1": {
		{name: "create_virtual_pointer", sig: "on", creates: "zwlr_virtual_pointer_v1"},
		{name: "destroy"},
		{name: "create_virtual_pointer_with_output", sig: "oon", creates: "zwlr_virtual_pointer_v1"},
	},
	"zwlr_virtual_pointer_v1": {
		{name: "motion", sig: "uff"},
		{name: "motion_absolute", sig: "uuuuu"},
		{name: "button", sig: "uuu"},
		{name: "axis", sig: "uuf"},
		{name: "frame"},
		{name: "axis_source", sig: "u"},
		{name: "axis_stop", sig: "uu"},
		{name: "axis_discrete", sig: "uufi"},
		{name: "destroy"},
	},
	"zwlr_screencopy_manager_v1": {
		{name: "capture_output", sig: "nio", creates: "zwlr_screencopy_frame_v1"},
		{name: "capture_output_region", sig: "nioiiii", creates: "zwlr_screencopy_frame_v1"},
		{name: "destroy"},
	},
	"zwlr_screencopy_frame_v1": {
		{name: "copy", sig: "o"},
		{name: "destroy"},
		{name: "copy_with_damage", sig: "o"},
	},
}

// destructors are requests after which the object is gone.
var destructors = map[string]bool{
	"destroy": true,
	"release": true,
}
