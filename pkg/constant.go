package pkg

// enum of lane kind
type LaneKind uint8

const (
	REGULAR LaneKind = iota
	EXTRA_LEFT
	EXTRA_RIGHT
)

func (k LaneKind) IsExtra() bool {
	return k == EXTRA_LEFT || k == EXTRA_RIGHT
}

func (k LaneKind) String() string {
	switch k {
	case REGULAR:
		return "regular"
	case EXTRA_LEFT:
		return "extra_left"
	case EXTRA_RIGHT:
		return "extra_right"
	default:
		return "unknown"
	}
}

// enum of oneway direction of a way, relative to its stored node order
type Oneway uint8

const (
	ONEWAY_NONE Oneway = iota
	ONEWAY_FORWARD
	ONEWAY_REVERSE
)

const (
	TYPE_CONNECTIVITY = "connectivity"
	TYPE_LENGTHS      = "turnlanes:lengths"

	KEY_TYPE         = "type"
	KEY_CONNECTIVITY = "connectivity"
	KEY_EXTRA_LANES  = "lanes:extra"

	KEY_LANES          = "lanes"
	KEY_LANES_FORWARD  = "lanes:forward"
	KEY_LANES_BACKWARD = "lanes:backward"
	KEY_ONEWAY         = "oneway"
	KEY_HIGHWAY        = "highway"
	KEY_JUNCTION       = "junction"

	KEY_LENGTHS_LEFT  = "lengths:left"
	KEY_LENGTHS_RIGHT = "lengths:right"

	ROLE_FROM = "from"
	ROLE_VIA  = "via"
	ROLE_TO   = "to"

	ROLE_LENGTHS_END  = "end"
	ROLE_LENGTHS_WAYS = "ways"
)

const (
	// extra-lane lengths (meters) below this bound are dropped while loading a road end.
	MIN_EXTRA_LANE_LENGTH = 0.5
	DEFAULT_LANE_COUNT    = 1
)

// validation finding codes
type FindingCode int

const (
	INCONSISTENT_LANE_COUNT FindingCode = 9200 + iota
	UNKNOWN_CONNECTIVITY_ROLE
	NO_CONNECTIVITY_TAG
	TOO_MANY_ROLES
	MALFORMED_CONNECTIVITY
	SHORT_EXTRA_LANE
)

func (c FindingCode) String() string {
	switch c {
	case INCONSISTENT_LANE_COUNT:
		return "InconsistentLaneCount"
	case UNKNOWN_CONNECTIVITY_ROLE:
		return "UnknownRole"
	case NO_CONNECTIVITY_TAG:
		return "NoConnectivityTag"
	case TOO_MANY_ROLES:
		return "TooManyRoles"
	case MALFORMED_CONNECTIVITY:
		return "MalformedConnectivity"
	case SHORT_EXTRA_LANE:
		return "ShortExtraLane"
	default:
		return "Unknown"
	}
}

type Severity uint8

const (
	WARNING Severity = iota
)

func (s Severity) String() string {
	return "warning"
}

// https://wiki.openstreetmap.org/wiki/Key:highway
func IsRoadHighway(highway string) bool {
	switch highway {
	case "motorway", "trunk", "primary", "secondary", "tertiary", "unclassified",
		"residential", "service", "motorway_link", "trunk_link", "primary_link",
		"secondary_link", "tertiary_link", "living_street", "road", "track":
		return true
	default:
		return false
	}
}
