package osmstore

import (
	"strings"

	"github.com/paulmach/osm"
)

// ParseTags parses whitespace separated key=value pairs, e.g. "highway=residential lanes=2".
func ParseTags(s string) osm.Tags {
	fields := strings.Fields(s)
	tags := make(osm.Tags, 0, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	return tags
}

func NewNode(id osm.NodeID, lat, lon float64) *osm.Node {
	return &osm.Node{ID: id, Lat: lat, Lon: lon, Visible: true}
}

func NewWay(id osm.WayID, tags string, nodes ...*osm.Node) *osm.Way {
	wn := make(osm.WayNodes, len(nodes))
	for i, n := range nodes {
		wn[i] = osm.WayNode{ID: n.ID, Lat: n.Lat, Lon: n.Lon}
	}
	return &osm.Way{ID: id, Tags: ParseTags(tags), Nodes: wn, Visible: true}
}

func NewRelation(id osm.RelationID, tags string, members ...osm.Member) *osm.Relation {
	return &osm.Relation{ID: id, Tags: ParseTags(tags), Members: members, Visible: true}
}

func NodeMember(role string, n *osm.Node) osm.Member {
	return osm.Member{Type: osm.TypeNode, Ref: int64(n.ID), Role: role}
}

func WayMember(role string, w *osm.Way) osm.Member {
	return osm.Member{Type: osm.TypeWay, Ref: int64(w.ID), Role: role}
}

// Add puts the given elements into d.
func (d *DataSet) Add(elements ...osm.Object) *DataSet {
	for _, e := range elements {
		switch o := e.(type) {
		case *osm.Node:
			d.AddNode(o)
		case *osm.Way:
			d.AddWay(o)
		case *osm.Relation:
			d.AddRelation(o)
		}
	}
	return d
}
