package turns

import (
	"testing"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/command"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/roadgraph"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnRemove(t *testing.T) {
	f := newFixture()
	f.way1.Tags = osmstore.ParseTags("highway=residential lanes=2 oneway=yes")
	f.way2.Tags = osmstore.ParseTags("highway=residential lanes=2 oneway=yes")
	relation := osmstore.NewRelation(100, "type=connectivity connectivity=1:1|2:2,(1)",
		osmstore.WayMember(pkg.ROLE_FROM, f.way2), osmstore.NodeMember(pkg.ROLE_VIA, f.a),
		osmstore.WayMember(pkg.ROLE_TO, f.way1))
	f.ds.Add(relation)
	h := command.NewHistory(f.ds, nil)

	g := f.graph(t, []osm.NodeID{f.a.ID}, nil)
	ts, err := Load(g, relation)
	require.NoError(t, err)
	require.Len(t, ts, 2)

	u := command.Begin("delete turn", f.ds)
	require.NoError(t, ts[0].Remove(u, g))
	commit(t, h, u)
	assert.Equal(t, "2:(1),2", relation.Tags.Find(pkg.KEY_CONNECTIVITY))
	assert.False(t, f.ds.IsDeleted(relation.ID))

	u = command.Begin("delete turn", f.ds)
	require.NoError(t, ts[1].Remove(u, g))
	commit(t, h, u)
	assert.True(t, f.ds.IsDeleted(relation.ID))

	require.NoError(t, h.Undo())
	assert.False(t, f.ds.IsDeleted(relation.ID))
	assert.Equal(t, "2:(1),2", relation.Tags.Find(pkg.KEY_CONNECTIVITY))

	require.NoError(t, h.Undo())
	assert.Equal(t, "1:1|2:2,(1)", relation.Tags.Find(pkg.KEY_CONNECTIVITY))
	assert.ErrorIs(t, h.Undo(), command.ErrNothingToUndo)

	// removing twice in one unit of work stages one change only.
	u = command.Begin("delete turn", f.ds)
	require.NoError(t, ts[0].Remove(u, g))
	require.NoError(t, ts[0].Remove(u, g))
	assert.Len(t, u.Changes(), 1)
}

func TestFixReferences(t *testing.T) {
	testCases := []struct {
		name  string
		extra string
		left  bool
		index int
		want  string
	}{
		{name: "left side shifts outer lanes inward", extra: "-1;-3;2;3", left: true, index: -2, want: "-1;-2;2;3"},
		{name: "right side shifts outer lanes inward", extra: "-1;1;3", left: false, index: 2, want: "-1;1;2"},
		{name: "inner lanes untouched", extra: "-1;1", left: false, index: 2, want: "-1;1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			relation := osmstore.NewRelation(100, "type=connectivity lanes:extra="+tc.extra,
				osmstore.WayMember(pkg.ROLE_FROM, f.way2), osmstore.NodeMember(pkg.ROLE_VIA, f.a),
				osmstore.WayMember(pkg.ROLE_TO, f.way1))
			f.ds.Add(relation)
			g := f.graph(t, []osm.NodeID{f.a.ID}, nil)

			u := command.Begin("fix references", f.ds)
			turn := NewTurn(relation.ID, roadgraph.INVALID_INDEX, nil, roadgraph.INVALID_INDEX)
			require.NoError(t, turn.FixReferences(u, g, tc.left, tc.index))
			assert.Equal(t, tc.want, u.Value(relation, pkg.KEY_EXTRA_LANES))
		})
	}
}

func TestAddTurnViaNode(t *testing.T) {
	f := newFixture()
	f.ds.Add(osmstore.NewRelation(200, "type=turnlanes:lengths lengths:right=15",
		osmstore.NodeMember(pkg.ROLE_LENGTHS_END, f.a), osmstore.WayMember(pkg.ROLE_LENGTHS_WAYS, f.way2)))
	h := command.NewHistory(f.ds, nil)
	g := f.graph(t, []osm.NodeID{f.a.ID}, nil)

	fromEnd := endOf(t, g, f.a.ID, f.way2.ID)
	toEnd := endOf(t, g, f.a.ID, f.way1.ID)
	regular := laneOf(t, g, fromEnd, pkg.REGULAR, 1)
	extra := laneOf(t, g, fromEnd, pkg.EXTRA_RIGHT, 1)

	u := command.Begin("add turn", f.ds)
	require.NoError(t, AddTurn(u, g, regular, nil, toEnd, nil))
	require.NoError(t, AddTurn(u, g, extra, nil, toEnd, nil))
	created := u.CreatedRelations()
	require.Len(t, created, 1)
	commit(t, h, u)

	r := created[0]
	assert.Equal(t, pkg.TYPE_CONNECTIVITY, r.Tags.Find(pkg.KEY_TYPE))
	assert.Equal(t, "1:1", r.Tags.Find(pkg.KEY_CONNECTIVITY))
	assert.Equal(t, "1", r.Tags.Find(pkg.KEY_EXTRA_LANES))
	assert.Equal(t, osm.Members{
		{Type: osm.TypeWay, Ref: int64(f.way2.ID), Role: pkg.ROLE_FROM},
		{Type: osm.TypeNode, Ref: int64(f.a.ID), Role: pkg.ROLE_VIA},
		{Type: osm.TypeWay, Ref: int64(f.way1.ID), Role: pkg.ROLE_TO},
	}, r.Members)

	ts, err := ToEnd(g, toEnd)
	require.NoError(t, err)
	assert.Len(t, ts, 2)

	u = command.Begin("add turn", f.ds)
	require.NoError(t, AddTurn(u, g, regular, nil, toEnd, nil))
	require.NoError(t, AddTurn(u, g, extra, nil, toEnd, nil))
	assert.True(t, u.IsEmpty())

	require.NoError(t, AddTurn(u, g, regular, nil, toEnd, []int{2}))
	assert.Empty(t, u.CreatedRelations())
	commit(t, h, u)
	assert.Equal(t, "1:1,2", r.Tags.Find(pkg.KEY_CONNECTIVITY))

	u = command.Begin("add turn", f.ds)
	assert.ErrorIs(t, AddTurn(u, g, regular, nil, toEnd, []int{0}), util.ErrInvalidArgument)
}

func TestAddTurnViaWays(t *testing.T) {
	f := newChainFixture()
	h := command.NewHistory(f.ds, nil)
	g, err := roadgraph.NewGraph(f.ds, []osm.NodeID{f.a.ID, f.e.ID}, []osm.WayID{f.way1.ID, f.way4.ID},
		util.DefaultConfig(), nil)
	require.NoError(t, err)

	fromEnd := endOf(t, g, f.a.ID, f.from.ID)
	toEnd := endOf(t, g, f.e.ID, f.to.ID)
	via, _ := g.GetRoad(f.way1.ID)
	lane := laneOf(t, g, fromEnd, pkg.REGULAR, 1)

	u := command.Begin("add turn", f.ds)
	require.NoError(t, AddTurn(u, g, lane, []roadgraph.Index{via}, toEnd, []int{1}))
	created := u.CreatedRelations()
	require.Len(t, created, 1)
	commit(t, h, u)

	r := created[0]
	assert.Equal(t, osm.Members{
		{Type: osm.TypeWay, Ref: int64(f.from.ID), Role: pkg.ROLE_FROM},
		{Type: osm.TypeWay, Ref: int64(f.way1.ID), Role: pkg.ROLE_VIA},
		{Type: osm.TypeWay, Ref: int64(f.way4.ID), Role: pkg.ROLE_VIA},
		{Type: osm.TypeWay, Ref: int64(f.to.ID), Role: pkg.ROLE_TO},
	}, r.Members)

	ts, err := Load(g, r)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, []roadgraph.Index{via}, ts[0].GetVia())

	u = command.Begin("add turn", f.ds)
	require.NoError(t, AddTurn(u, g, lane, []roadgraph.Index{via}, toEnd, []int{2}))
	assert.Empty(t, u.CreatedRelations())
	commit(t, h, u)
	assert.Equal(t, "1:1,2", r.Tags.Find(pkg.KEY_CONNECTIVITY))
}

func TestAddTurnReusesReorderedRelation(t *testing.T) {
	f := newFixture()
	relation := osmstore.NewRelation(100, "type=connectivity connectivity=1:(2)",
		osmstore.NodeMember(pkg.ROLE_VIA, f.a), osmstore.WayMember(pkg.ROLE_TO, f.way1),
		osmstore.WayMember(pkg.ROLE_FROM, f.way2))
	f.ds.Add(relation)
	h := command.NewHistory(f.ds, nil)
	g := f.graph(t, []osm.NodeID{f.a.ID}, nil)

	fromEnd := endOf(t, g, f.a.ID, f.way2.ID)
	toEnd := endOf(t, g, f.a.ID, f.way1.ID)
	lane := laneOf(t, g, fromEnd, pkg.REGULAR, 1)

	ts, err := Load(g, relation)
	require.NoError(t, err)
	require.Len(t, ts, 1)

	u := command.Begin("add turn", f.ds)
	require.NoError(t, AddTurn(u, g, lane, nil, toEnd, nil))
	assert.True(t, u.IsEmpty())

	require.NoError(t, AddTurn(u, g, lane, nil, toEnd, []int{2}))
	require.NoError(t, AddTurn(u, g, lane, nil, toEnd, []int{1}))
	assert.Empty(t, u.CreatedRelations())
	commit(t, h, u)
	assert.Equal(t, "1:1,(2)", relation.Tags.Find(pkg.KEY_CONNECTIVITY))
}

func TestAddTurnUnreachableEnd(t *testing.T) {
	t.Run("via node", func(t *testing.T) {
		f := newFixture()
		g := f.graph(t, []osm.NodeID{f.a.ID}, nil)
		fromEnd := endOf(t, g, f.a.ID, f.way2.ID)
		farEnd := endOf(t, g, f.d.ID, f.way3.ID)

		u := command.Begin("add turn", f.ds)
		err := AddTurn(u, g, laneOf(t, g, fromEnd, pkg.REGULAR, 1), nil, farEnd, nil)
		assert.ErrorIs(t, err, util.ErrInvalidArgument)
		assert.True(t, u.IsEmpty())
	})

	t.Run("via ways", func(t *testing.T) {
		f := newChainFixture()
		g, err := roadgraph.NewGraph(f.ds, []osm.NodeID{f.a.ID, f.e.ID}, []osm.WayID{f.way1.ID, f.way4.ID},
			util.DefaultConfig(), nil)
		require.NoError(t, err)
		fromEnd := endOf(t, g, f.a.ID, f.from.ID)
		via, _ := g.GetRoad(f.way1.ID)
		backEnd := endOf(t, g, f.a.ID, f.way1.ID)

		u := command.Begin("add turn", f.ds)
		err = AddTurn(u, g, laneOf(t, g, fromEnd, pkg.REGULAR, 1), []roadgraph.Index{via}, backEnd, nil)
		assert.ErrorIs(t, err, util.ErrInvalidArgument)
		assert.True(t, u.IsEmpty())
	})
}

func TestRemoveLane(t *testing.T) {
	f := newFixture()
	lengths := osmstore.NewRelation(200, "type=turnlanes:lengths lengths:right=15;25;35",
		osmstore.NodeMember(pkg.ROLE_LENGTHS_END, f.a), osmstore.WayMember(pkg.ROLE_LENGTHS_WAYS, f.way2))
	straight := osmstore.NewRelation(100, "type=connectivity connectivity=1:1 lanes:extra=1;3",
		osmstore.WayMember(pkg.ROLE_FROM, f.way2), osmstore.NodeMember(pkg.ROLE_VIA, f.a),
		osmstore.WayMember(pkg.ROLE_TO, f.way1))
	uturn := osmstore.NewRelation(101, "type=connectivity lanes:extra=2",
		osmstore.WayMember(pkg.ROLE_FROM, f.way2), osmstore.NodeMember(pkg.ROLE_VIA, f.a),
		osmstore.WayMember(pkg.ROLE_TO, f.way2))
	f.ds.Add(lengths, straight, uturn)
	h := command.NewHistory(f.ds, nil)

	g := f.graph(t, []osm.NodeID{f.a.ID}, nil)
	e := endOf(t, g, f.a.ID, f.way2.ID)

	u := command.Begin("delete lane", f.ds)
	assert.ErrorIs(t, RemoveLane(u, g, laneOf(t, g, e, pkg.REGULAR, 1)), util.ErrInvalidOperation)

	require.NoError(t, RemoveLane(u, g, laneOf(t, g, e, pkg.EXTRA_RIGHT, 2)))
	commit(t, h, u)

	assert.True(t, f.ds.IsDeleted(uturn.ID))
	assert.Equal(t, "1;2", straight.Tags.Find(pkg.KEY_EXTRA_LANES))
	assert.Equal(t, "1:1", straight.Tags.Find(pkg.KEY_CONNECTIVITY))
	assert.Equal(t, "15;35", lengths.Tags.Find(pkg.KEY_LENGTHS_RIGHT))

	g2, err := g.Recalculate()
	require.NoError(t, err)
	ts, err := Load(g2, straight)
	require.NoError(t, err)
	assert.Len(t, ts, 3)

	require.NoError(t, h.Undo())
	assert.False(t, f.ds.IsDeleted(uturn.ID))
	assert.Equal(t, "1;3", straight.Tags.Find(pkg.KEY_EXTRA_LANES))
	assert.Equal(t, "15;25;35", lengths.Tags.Find(pkg.KEY_LENGTHS_RIGHT))
}
