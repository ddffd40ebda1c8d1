package inspection

// Status is the outcome recorded for a single checklist item.
type Status string

const (
	StatusUnset Status = ""
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusNA    Status = "na"
)

// Valid reports whether s is one of the legal item statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnset, StatusPass, StatusFail, StatusNA:
		return true
	}
	return false
}

// Item is a single inspectable point.
type Item struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// Section groups related items, e.g. "Brake System".
type Section struct {
	Title string `json:"title"`
	Icon  string `json:"icon"`
	Items []Item `json:"items"`
}

// Kind selects the checklist catalog a wizard runs against.
type Kind string

const (
	KindDOTAnnual Kind = "dot_annual"
	KindQuick     Kind = "quick"
)

// Valid reports whether k names a known catalog.
func (k Kind) Valid() bool {
	_, ok := catalogs[k]
	return ok
}

// Label is the human readable inspection type stored on records.
func (k Kind) Label() string {
	switch k {
	case KindQuick:
		return "Quick"
	default:
		return "DOT Annual"
	}
}

// RequiresCompleteChecklist reports whether every item must be set before submit.
func (k Kind) RequiresCompleteChecklist() bool {
	return k == KindQuick
}

type catalogItem struct {
	id    string
	label string
}

type catalogSection struct {
	title string
	icon  string
	items []catalogItem
}

var catalogs = map[Kind][]catalogSection{
	KindDOTAnnual: {
		{title: "Brake System", icon: "🛑", items: []catalogItem{
			{"brake_adjustment", "Brake Adjustment"},
			{"brake_connections", "Brake Connections"},
			{"brake_drums", "Brake Drums / Rotors"},
			{"brake_hoses", "Brake Hoses"},
			{"brake_tubing", "Brake Tubing"},
		}},
		{title: "Coupling", icon: "🔗", items: []catalogItem{
			{"fifth_wheel", "Fifth Wheel"},
			{"pintle_hooks", "Pintle Hooks"},
			{"drawbar_eye", "Drawbar / Towbar / Eye"},
			{"safety_chains", "Safety Chains"},
		}},
		{title: "Lighting", icon: "💡", items: []catalogItem{
			{"headlights", "Headlights"},
			{"tail_lights", "Tail Lights"},
			{"brake_lights", "Brake Lights"},
			{"turn_signals", "Turn Signals"},
			{"clearance_lights", "Clearance Lights"},
			{"reflectors", "Reflectors"},
		}},
		{title: "Loading", icon: "📦", items: []catalogItem{
			{"cargo_securement", "Cargo Securement"},
			{"tailgate", "Tailgate / Doors"},
			{"doors", "Side Doors"},
		}},
		{title: "Suspension", icon: "🔧", items: []catalogItem{
			{"spring_assembly", "Spring Assembly"},
			{"torque_arm", "Torque / Radius Arm"},
		}},
		{title: "Tires", icon: "🛞", items: []catalogItem{
			{"tire_condition", "Tire Condition"},
			{"tire_tread_depth", "Tread Depth"},
		}},
		{title: "Wheels", icon: "⚙️", items: []catalogItem{
			{"wheels_rims", "Wheels / Rims"},
			{"wheel_fasteners", "Wheel Fasteners"},
		}},
		{title: "Frame", icon: "🏗️", items: []catalogItem{
			{"frame_members", "Frame Members"},
		}},
		{title: "Exhaust", icon: "💨", items: []catalogItem{
			{"exhaust_system", "Exhaust System"},
		}},
		{title: "Fuel", icon: "⛽", items: []catalogItem{
			{"fuel_tank", "Fuel Tank"},
			{"fuel_lines", "Fuel Lines"},
		}},
		{title: "Steering", icon: "🎮", items: []catalogItem{
			{"steering_wheel", "Steering Wheel"},
			{"steering_column", "Steering Column"},
			{"steering_gear", "Steering Gear Box"},
			{"pitman_arm", "Pitman Arm"},
			{"power_steering", "Power Steering"},
		}},
		{title: "Windshield", icon: "🪟", items: []catalogItem{
			{"windshield_condition", "Windshield Condition"},
			{"windshield_wipers", "Wipers / Washers"},
		}},
		{title: "Other", icon: "🔔", items: []catalogItem{
			{"horn", "Horn"},
			{"mirrors", "Mirrors"},
			{"mud_flaps", "Mud Flaps / Splash Guards"},
		}},
	},
	KindQuick: {
		{title: "Quick Check", icon: "⚡", items: []catalogItem{
			{"brakes_status", "Brakes"},
			{"lights_status", "Lights"},
			{"tires_status", "Tires"},
			{"documents_dot_status", "DOT Documents"},
			{"suspension_axles_status", "Suspension & Axles"},
			{"frame_body_status", "Frame & Body"},
			{"tandems_landing_gear_status", "Tandems & Landing Gear"},
		}},
	},
}

// NewSections returns a fresh, unset copy of the catalog for kind. Unknown
// kinds yield nil.
func NewSections(kind Kind) []Section {
	cat, ok := catalogs[kind]
	if !ok {
		return nil
	}
	sections := make([]Section, len(cat))
	for i, cs := range cat {
		items := make([]Item, len(cs.items))
		for j, ci := range cs.items {
			items[j] = Item{ID: ci.id, Label: ci.label, Status: StatusUnset}
		}
		sections[i] = Section{Title: cs.title, Icon: cs.icon, Items: items}
	}
	return sections
}

func cloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = Section{Title: s.Title, Icon: s.Icon, Items: append([]Item(nil), s.Items...)}
	}
	return out
}

// TotalItemCount is the number of items across all sections.
func TotalItemCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Items)
	}
	return n
}

// CompletedItemCount is the number of items whose status is set.
func CompletedItemCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		for _, item := range s.Items {
			if item.Status != StatusUnset {
				n++
			}
		}
	}
	return n
}

// CountByStatus is the number of items carrying status.
func CountByStatus(sections []Section, status Status) int {
	n := 0
	for _, s := range sections {
		for _, item := range s.Items {
			if item.Status == status {
				n++
			}
		}
	}
	return n
}
