package osmstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// LoadFile reads a .osm, .osm.bz2 or .osm.pbf file into a new DataSet.
func LoadFile(ctx context.Context, path string, logger *zap.Logger) (*DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %s, err: %v", path, err)
	}
	defer f.Close()

	var sc scanner
	switch {
	case strings.HasSuffix(path, ".pbf"):
		sc = osmpbf.New(ctx, f, runtime.GOMAXPROCS(0))
	case strings.HasSuffix(path, ".bz2"):
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			return nil, err
		}
		defer bz.Close()
		sc = osmxml.New(ctx, bz)
	default:
		sc = osmxml.New(ctx, f)
	}
	defer sc.Close()

	return load(sc, logger)
}

// Load reads OSM XML from r into a new DataSet.
func Load(ctx context.Context, r io.Reader, logger *zap.Logger) (*DataSet, error) {
	sc := osmxml.New(ctx, r)
	defer sc.Close()
	return load(sc, logger)
}

func load(sc scanner, logger *zap.Logger) (*DataSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ds := NewDataSet()
	countNodes, countWays, countRelations := 0, 0, 0
	for sc.Scan() {
		switch o := sc.Object().(type) {
		case *osm.Node:
			ds.AddNode(o)
			countNodes++
		case *osm.Way:
			if len(o.Nodes) < 2 {
				continue
			}
			ds.AddWay(o)
			countWays++
		case *osm.Relation:
			ds.AddRelation(o)
			countRelations++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	logger.Sugar().Infof("loaded openstreetmap data: %d nodes, %d ways, %d relations",
		countNodes, countWays, countRelations)
	return ds, nil
}
