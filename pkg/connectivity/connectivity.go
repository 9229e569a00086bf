package connectivity

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lintang-b-s/laneconnectivity/pkg/util"
)

// Map is the decoded connectivity tag: from lane -> (to lane -> optional).
// Source lanes keep the order in which they appeared in the tag.
type Map struct {
	order []int
	lanes map[int]map[int]bool
}

func NewMap() *Map {
	return &Map{
		order: make([]int, 0),
		lanes: make(map[int]map[int]bool),
	}
}

func (m *Map) Len() int {
	return len(m.order)
}

// Keys returns the source lanes in insertion order.
func (m *Map) Keys() []int {
	keys := make([]int, len(m.order))
	copy(keys, m.order)
	return keys
}

func (m *Map) Get(from int) (map[int]bool, bool) {
	to, ok := m.lanes[from]
	return to, ok
}

func (m *Map) Has(from int) bool {
	_, ok := m.lanes[from]
	return ok
}

// Set replaces the destinations of from. A new source lane is appended at the end.
func (m *Map) Set(from int, to map[int]bool) {
	if _, ok := m.lanes[from]; !ok {
		m.order = append(m.order, from)
	}
	cp := make(map[int]bool, len(to))
	for k, v := range to {
		cp[k] = v
	}
	m.lanes[from] = cp
}

func (m *Map) Delete(from int) {
	if _, ok := m.lanes[from]; !ok {
		return
	}
	delete(m.lanes, from)
	for i, k := range m.order {
		if k == from {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Map) MaxFrom() (int, bool) {
	return util.MaxKey(m.lanes)
}

// MaxTo returns the largest destination lane over all source lanes.
func (m *Map) MaxTo() (int, bool) {
	var (
		max   int
		found bool
	)
	for _, to := range m.lanes {
		if k, ok := util.MaxKey(to); ok && (!found || k > max) {
			max = k
			found = true
		}
	}
	return max, found
}

// Equal compares the from -> to -> optional structure, ignoring order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for from, to := range m.lanes {
		oto, ok := o.lanes[from]
		if !ok || len(oto) != len(to) {
			return false
		}
		for lane, optional := range to {
			if oopt, ok := oto[lane]; !ok || oopt != optional {
				return false
			}
		}
	}
	return true
}

func (m *Map) String() string {
	return Encode(m)
}

// Encode serializes m as `from:to,(optional)|...`, destinations ascending.
// An empty map encodes to "" which means the tag is absent.
func Encode(m *Map) string {
	if m == nil || m.Len() == 0 {
		return ""
	}

	var sb strings.Builder
	for i, from := range m.order {
		if i > 0 {
			sb.WriteString(LANE_SEPARATOR)
		}
		sb.WriteString(strconv.Itoa(from))
		sb.WriteString(FROM_TO_SEPARATOR)

		to := m.lanes[from]
		dests := make([]int, 0, len(to))
		for lane := range to {
			dests = append(dests, lane)
		}
		sort.Ints(dests)
		for j, lane := range dests {
			if j > 0 {
				sb.WriteString(DESTINATION_SEPARATOR)
			}
			if to[lane] {
				sb.WriteString("(" + strconv.Itoa(lane) + ")")
			} else {
				sb.WriteString(strconv.Itoa(lane))
			}
		}
	}
	return sb.String()
}
