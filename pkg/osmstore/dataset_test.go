package osmstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/laneconnectivity/pkg/command"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0" lon="0" version="1" visible="true"/>
  <node id="2" lat="0.1" lon="0.1" version="1" visible="true"/>
  <node id="3" lat="-0.2" lon="0.1" version="1" visible="true"/>
  <way id="10" version="1" visible="true">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
    <tag k="lanes" v="2"/>
  </way>
  <way id="20" version="1" visible="true">
    <nd ref="3"/>
    <nd ref="1"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="30" version="1" visible="true">
    <nd ref="3"/>
  </way>
  <relation id="100" version="1" visible="true">
    <member type="way" ref="20" role="from"/>
    <member type="node" ref="1" role="via"/>
    <member type="way" ref="10" role="to"/>
    <tag k="type" v="connectivity"/>
    <tag k="connectivity" v="1:1"/>
  </relation>
</osm>`

func assertTestData(t *testing.T, ds *DataSet) {
	t.Helper()
	assert.Equal(t, 3, ds.NumberOfNodes())
	assert.Equal(t, 2, ds.NumberOfWays())

	r, ok := ds.Relation(100)
	require.True(t, ok)
	assert.Equal(t, "1:1", r.Tags.Find("connectivity"))
	assert.False(t, ds.HasIncompleteMembers(r))

	ways := ds.WaysOfNode(1)
	require.Len(t, ways, 2)
	assert.Equal(t, osm.WayID(10), ways[0].ID)
	assert.Equal(t, osm.WayID(20), ways[1].ID)

	refs := ds.Referrers(osm.NodeID(1).FeatureID())
	require.Len(t, refs, 1)
	assert.Equal(t, osm.RelationID(100), refs[0].ID)
}

func TestLoad(t *testing.T) {
	ds, err := Load(context.Background(), strings.NewReader(testXML), nil)
	require.NoError(t, err)
	assertTestData(t, ds)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "map.osm")
	require.NoError(t, os.WriteFile(plain, []byte(testXML), 0o644))

	compressed := filepath.Join(dir, "map.osm.bz2")
	f, err := os.Create(compressed)
	require.NoError(t, err)
	w, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	require.NoError(t, err)
	_, err = w.Write([]byte(testXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	testCases := []struct {
		name string
		path string
	}{
		{name: "xml", path: plain},
		{name: "bzip2 xml", path: compressed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := LoadFile(context.Background(), tc.path, nil)
			require.NoError(t, err)
			assertTestData(t, ds)
		})
	}

	_, err = LoadFile(context.Background(), filepath.Join(dir, "missing.osm"), nil)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	a := NewNode(1, 0, 0)
	b := NewNode(2, 0, 1)
	c := NewNode(3, 0, 2)
	w1 := NewWay(10, "highway=residential lanes=2", a, b)
	w2 := NewWay(11, "highway=residential", c, b)
	w3 := NewWay(12, "highway=residential", a, c)

	assert.Equal(t, osm.Tags{{Key: "highway", Value: "residential"}, {Key: "lanes", Value: "2"}}, w1.Tags)
	assert.True(t, HasKey(w1.Tags, "lanes"))
	assert.False(t, HasKey(w2.Tags, "lanes"))

	testCases := []struct {
		name     string
		a, b     *osm.Way
		common   osm.NodeID
		touching bool
	}{
		{name: "shared last nodes", a: w1, b: w2, common: b.ID, touching: true},
		{name: "shared first nodes", a: w1, b: w3, common: a.ID, touching: true},
		{name: "shared first and last", a: w2, b: w3, common: c.ID, touching: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := CommonEnd(tc.a, tc.b)
			assert.Equal(t, tc.touching, ok)
			assert.Equal(t, tc.common, n)
		})
	}

	n, ok := OppositeEnd(w2, b.ID)
	assert.True(t, ok)
	assert.Equal(t, c.ID, n)
	_, ok = OppositeEnd(w2, a.ID)
	assert.False(t, ok)

	ds := NewDataSet().Add(a, b, w1)
	r := NewRelation(100, "type=connectivity", WayMember("from", w1), NodeMember("via", b), WayMember("to", w2))
	ds.Add(r)
	assert.True(t, ds.HasIncompleteMembers(r))
	assert.Len(t, MemberWays(ds, r, "from"), 1)
	assert.Empty(t, MemberWays(ds, r, "to"))
	assert.Len(t, MemberNodes(ds, r, "via"), 1)
}

func TestApply(t *testing.T) {
	a := NewNode(1, 0, 0)
	b := NewNode(2, 0, 1)
	w := NewWay(10, "highway=residential", a, b)
	r := NewRelation(100, "type=connectivity connectivity=1:1", WayMember("from", w))
	ds := NewDataSet().Add(a, b, w, r)

	inv, err := ds.Apply(command.Change{Op: command.OP_SET_TAG, Relation: r.ID, Key: "connectivity", Value: "1:2"})
	require.NoError(t, err)
	assert.Equal(t, "1:2", r.Tags.Find("connectivity"))
	_, err = ds.Apply(inv)
	require.NoError(t, err)
	assert.Equal(t, "1:1", r.Tags.Find("connectivity"))

	inv, err = ds.Apply(command.Change{Op: command.OP_DELETE, Relation: r.ID})
	require.NoError(t, err)
	assert.True(t, ds.IsDeleted(r.ID))
	assert.Empty(t, ds.Referrers(w.FeatureID()))
	assert.Empty(t, ds.Relations())
	_, err = ds.Apply(inv)
	require.NoError(t, err)
	assert.Len(t, ds.Referrers(w.FeatureID()), 1)

	id := ds.NewRelationID()
	assert.Less(t, int64(id), int64(0))
	created := NewRelation(id, "type=turnlanes:lengths", WayMember("ways", w))
	inv, err = ds.Apply(command.Change{Op: command.OP_CREATE, Relation: id, Created: created})
	require.NoError(t, err)
	assert.Len(t, ds.Referrers(w.FeatureID()), 2)
	_, err = ds.Apply(command.Change{Op: command.OP_CREATE, Relation: id, Created: created})
	assert.ErrorIs(t, err, util.ErrInvalidOperation)

	_, err = ds.Apply(inv)
	require.NoError(t, err)
	_, ok := ds.Relation(id)
	assert.False(t, ok)
	assert.Len(t, ds.Referrers(w.FeatureID()), 1)

	_, err = ds.Apply(command.Change{Op: command.OP_SET_TAG, Relation: 999, Key: "k", Value: "v"})
	assert.ErrorIs(t, err, util.ErrNotFound)
}
