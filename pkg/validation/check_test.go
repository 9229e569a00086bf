package validation

import (
	"testing"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelation() (*osmstore.DataSet, *osm.Relation) {
	connection := osmstore.NewNode(1, 0, 0)
	start := osmstore.NewNode(2, -0.1, -0.1)
	end := osmstore.NewNode(3, 0.1, 0.1)
	from := osmstore.NewWay(10, "lanes=4", start, connection)
	to := osmstore.NewWay(11, "lanes=4", connection, end)
	relation := osmstore.NewRelation(100, "type=connectivity connectivity=1:1",
		osmstore.WayMember(pkg.ROLE_FROM, from), osmstore.NodeMember(pkg.ROLE_VIA, connection),
		osmstore.WayMember(pkg.ROLE_TO, to))

	ds := osmstore.NewDataSet().Add(connection, start, end, from, to, relation)
	return ds, relation
}

func codes(fs []Finding) []pkg.FindingCode {
	result := make([]pkg.FindingCode, 0, len(fs))
	for _, f := range fs {
		result = append(result, f.Code)
	}
	return result
}

func TestNoConnectivityTag(t *testing.T) {
	ds, relation := newTestRelation()
	c := NewChecker(ds, util.DefaultConfig(), nil)

	c.Visit(relation)
	assert.Empty(t, c.Findings())

	relation.Tags = osmstore.ParseTags("type=connectivity")
	c.Visit(relation)
	require.Len(t, c.Findings(), 1)
	f := c.Findings()[0]
	assert.Equal(t, pkg.NO_CONNECTIVITY_TAG, f.Code)
	assert.Equal(t, pkg.WARNING, f.Severity)
	assert.Equal(t, relation.ID, f.Relation)

	// a missing tag wins over a broken member list.
	relation.Members = relation.Members[:1]
	assert.Equal(t, []pkg.FindingCode{pkg.NO_CONNECTIVITY_TAG}, codes(Check(ds, util.DefaultConfig(), relation)))
}

func TestMismatchedLanes(t *testing.T) {
	testCases := []struct {
		name         string
		connectivity string
		want         []pkg.FindingCode
	}{
		{name: "consistent", connectivity: "1:1", want: []pkg.FindingCode{}},
		{name: "source lane too high", connectivity: "45000:1", want: []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}},
		{name: "destination lane too high", connectivity: "1:45000", want: []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}},
		{name: "two destinations", connectivity: "1:1,2", want: []pkg.FindingCode{}},
		{name: "optional destination", connectivity: "1:1,(2)", want: []pkg.FindingCode{}},
		{name: "optional destination too high", connectivity: "1:1,(20000)", want: []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}},
		{name: "both sides too high", connectivity: "9:9", want: []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}},
		{name: "too high in an earlier entry", connectivity: "1:7|2:2", want: []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}},
		{name: "malformed", connectivity: "1:x", want: []pkg.FindingCode{pkg.MALFORMED_CONNECTIVITY}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ds, relation := newTestRelation()
			relation.Tags = osmstore.ParseTags("type=connectivity connectivity=" + tc.connectivity)
			assert.Equal(t, tc.want, codes(Check(ds, util.DefaultConfig(), relation)))
		})
	}
}

func TestMismatchedLanesCorrected(t *testing.T) {
	ds, relation := newTestRelation()
	c := NewChecker(ds, util.DefaultConfig(), nil)

	relation.Tags = osmstore.ParseTags("type=connectivity connectivity=1:5")
	c.Visit(relation)
	assert.Equal(t, []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}, codes(c.Findings()))

	relation.Tags = osmstore.ParseTags("type=connectivity connectivity=1:4")
	assert.Empty(t, Check(ds, util.DefaultConfig(), relation))
}

func TestBadRole(t *testing.T) {
	ds, relation := newTestRelation()

	for i := range relation.Members {
		role := relation.Members[i].Role
		relation.Members[i].Role = "badRole"

		found := Check(ds, util.DefaultConfig(), relation)
		require.Len(t, found, 1)
		assert.Equal(t, pkg.UNKNOWN_CONNECTIVITY_ROLE, found[0].Code)
		assert.Equal(t, relation.Members[i].FeatureID(), found[0].Highlight)

		relation.Members[i].Role = role
		assert.Empty(t, Check(ds, util.DefaultConfig(), relation))
	}

	// the lane count check is skipped while a role is wrong.
	relation.Tags = osmstore.ParseTags("type=connectivity connectivity=9:9")
	relation.Members[0].Role = "badRole"
	assert.Equal(t, []pkg.FindingCode{pkg.UNKNOWN_CONNECTIVITY_ROLE}, codes(Check(ds, util.DefaultConfig(), relation)))
}

func TestTooManyRoles(t *testing.T) {
	testCases := []struct {
		name  string
		extra osm.Member
	}{
		{name: "second from way", extra: osm.Member{Type: osm.TypeWay, Ref: 11, Role: pkg.ROLE_FROM}},
		{name: "second to way", extra: osm.Member{Type: osm.TypeWay, Ref: 10, Role: pkg.ROLE_TO}},
		{name: "via node mixed with via way", extra: osm.Member{Type: osm.TypeWay, Ref: 10, Role: pkg.ROLE_VIA}},
		{name: "second via node", extra: osm.Member{Type: osm.TypeNode, Ref: 2, Role: pkg.ROLE_VIA}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ds, relation := newTestRelation()
			relation.Tags = osmstore.ParseTags("type=connectivity connectivity=9:9")
			relation.Members = append(relation.Members, tc.extra)
			assert.Equal(t, []pkg.FindingCode{pkg.TOO_MANY_ROLES}, codes(Check(ds, util.DefaultConfig(), relation)))
		})
	}
}

func TestIncompleteMembers(t *testing.T) {
	ds, relation := newTestRelation()
	relation.Tags = osmstore.ParseTags("type=connectivity connectivity=9:9")
	relation.Members[2].Ref = 999

	assert.Empty(t, Check(ds, util.DefaultConfig(), relation))
}

func TestMissingLanesTag(t *testing.T) {
	ds, relation := newTestRelation()
	to, ok := ds.Way(11)
	require.True(t, ok)
	to.Tags = osmstore.ParseTags("highway=residential")

	relation.Tags = osmstore.ParseTags("type=connectivity connectivity=1:9")
	assert.Empty(t, Check(ds, util.DefaultConfig(), relation))

	relation.Tags = osmstore.ParseTags("type=connectivity connectivity=9:1")
	assert.Equal(t, []pkg.FindingCode{pkg.INCONSISTENT_LANE_COUNT}, codes(Check(ds, util.DefaultConfig(), relation)))
}

func TestLengthsRelation(t *testing.T) {
	testCases := []struct {
		name string
		tags string
		want []pkg.FindingCode
	}{
		{name: "all long enough", tags: "type=turnlanes:lengths lengths:left=10 lengths:right=20;30", want: []pkg.FindingCode{}},
		{name: "short entry", tags: "type=turnlanes:lengths lengths:right=20;0.1", want: []pkg.FindingCode{pkg.SHORT_EXTRA_LANE}},
		{name: "short on both sides", tags: "type=turnlanes:lengths lengths:left=0.2 lengths:right=0.3",
			want: []pkg.FindingCode{pkg.SHORT_EXTRA_LANE, pkg.SHORT_EXTRA_LANE}},
		{name: "malformed", tags: "type=turnlanes:lengths lengths:left=ten", want: []pkg.FindingCode{pkg.MALFORMED_CONNECTIVITY}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			relation := osmstore.NewRelation(200, tc.tags)
			assert.Equal(t, tc.want, codes(Check(osmstore.NewDataSet(), util.DefaultConfig(), relation)))
		})
	}
}

func TestIgnoresOtherRelations(t *testing.T) {
	ds, _ := newTestRelation()
	c := NewChecker(ds, util.DefaultConfig(), nil)
	c.Visit(osmstore.NewRelation(300, "type=restriction restriction=no_left_turn"))
	assert.Empty(t, c.Findings())
}
