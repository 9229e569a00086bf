package laneindex

import (
	"strconv"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
)

// Segment is the minimal read view of a tagged way.
type Segment interface {
	// TagValue returns the tag value and whether the key is present.
	TagValue(key string) (string, bool)
	FirstNode() osm.NodeID
	LastNode() osm.NodeID
}

type waySegment struct {
	way *osm.Way
}

// FromWay adapts an osm way to a Segment.
func FromWay(w *osm.Way) Segment {
	return waySegment{way: w}
}

func (s waySegment) TagValue(key string) (string, bool) {
	for _, t := range s.way.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

func (s waySegment) FirstNode() osm.NodeID {
	return s.way.Nodes[0].ID
}

func (s waySegment) LastNode() osm.NodeID {
	return s.way.Nodes[len(s.way.Nodes)-1].ID
}

// https://wiki.openstreetmap.org/wiki/Key:oneway
func GetOneway(s Segment) pkg.Oneway {
	oneway, _ := s.TagValue(pkg.KEY_ONEWAY)
	switch oneway {
	case "yes", "true", "1":
		return pkg.ONEWAY_FORWARD
	case "-1", "reverse":
		return pkg.ONEWAY_REVERSE
	case "no", "false", "0", "reversible", "alternating":
		return pkg.ONEWAY_NONE
	}

	if junction, _ := s.TagValue(pkg.KEY_JUNCTION); junction == "roundabout" || junction == "circular" {
		return pkg.ONEWAY_FORWARD
	}
	if highway, _ := s.TagValue(pkg.KEY_HIGHWAY); highway == "motorway" || highway == "motorway_link" {
		return pkg.ONEWAY_FORWARD
	}
	return pkg.ONEWAY_NONE
}

// HasDirectionKeys reports whether s is tagged as a strictly oneway segment.
func HasDirectionKeys(s Segment) bool {
	return GetOneway(s) != pkg.ONEWAY_NONE
}

// RegularCount returns the number of regular lanes arriving at end, where end is
// one of the two end nodes of s. Lanes heading towards the last node are "forward".
//
// A oneway segment has all of its lanes at exactly one end. A two way segment is split by
// lanes:backward, else lanes:forward, else evenly with the forward share rounded up.
func RegularCount(s Segment, end osm.NodeID, defaultCount int) (int, error) {
	count, err := intTag(s, pkg.KEY_LANES, defaultCount)
	if err != nil {
		return 0, err
	}
	forward := s.LastNode() == end

	if HasDirectionKeys(s) {
		return regularCountOneWay(s, forward, count), nil
	}
	return regularCountTwoWay(s, forward, count)
}

func regularCountOneWay(s Segment, forward bool, count int) int {
	if forward != (GetOneway(s) == pkg.ONEWAY_REVERSE) {
		return count
	}
	return 0
}

func regularCountTwoWay(s Segment, forward bool, count int) (int, error) {
	if _, ok := s.TagValue(pkg.KEY_LANES_BACKWARD); ok {
		backward, err := intTag(s, pkg.KEY_LANES_BACKWARD, 0)
		if err != nil {
			return 0, err
		}
		if forward {
			return clamp(count - backward), nil
		}
		return clamp(backward), nil
	}

	if _, ok := s.TagValue(pkg.KEY_LANES_FORWARD); ok {
		fwd, err := intTag(s, pkg.KEY_LANES_FORWARD, 0)
		if err != nil {
			return 0, err
		}
		if forward {
			return clamp(fwd), nil
		}
		return clamp(count - fwd), nil
	}

	// default: round up in forward direction
	if forward {
		return (count + 1) / 2, nil
	}
	return count / 2, nil
}

func intTag(s Segment, key string, defaultValue int) (int, error) {
	v, ok := s.TagValue(key)
	if !ok {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, util.WrapErrorf(err, util.ErrMalformedEncoding, "%s=%q is not an integer", key, v)
	}
	return n, nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
