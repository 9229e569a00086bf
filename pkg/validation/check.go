package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/connectivity"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

// Finding is one diagnostic about a relation. Highlight is the offending member,
// zero when the relation as a whole is at fault.
type Finding struct {
	Code      pkg.FindingCode
	Severity  pkg.Severity
	Message   string
	Relation  osm.RelationID
	Highlight osm.FeatureID
}

func (f Finding) String() string {
	return fmt.Sprintf("%v %d (%v): relation %d: %s", f.Severity, int(f.Code), f.Code, f.Relation, f.Message)
}

func newFinding(code pkg.FindingCode, r *osm.Relation, format string, a ...interface{}) Finding {
	return Finding{
		Code:     code,
		Severity: pkg.WARNING,
		Message:  fmt.Sprintf(format, a...),
		Relation: r.ID,
	}
}

// Checker accumulates the findings of every visited relation.
type Checker struct {
	store    osmstore.Store
	cfg      util.Config
	log      *zap.Logger
	findings []Finding
}

func NewChecker(store osmstore.Store, cfg util.Config, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		store:    store,
		cfg:      cfg,
		log:      log,
		findings: make([]Finding, 0),
	}
}

// Visit checks r and records its findings. Relations that are neither connectivity
// nor lengths relations are ignored.
func (c *Checker) Visit(r *osm.Relation) {
	found := Check(c.store, c.cfg, r)
	for _, f := range found {
		c.log.Debug("connectivity finding", zap.Int64("relation", int64(r.ID)),
			zap.Int("code", int(f.Code)), zap.String("message", f.Message))
	}
	c.findings = append(c.findings, found...)
}

func (c *Checker) Findings() []Finding {
	return c.findings
}

// Check returns the findings of a single relation. It only reads from store.
func Check(store osmstore.Store, cfg util.Config, r *osm.Relation) []Finding {
	switch r.Tags.Find(pkg.KEY_TYPE) {
	case pkg.TYPE_CONNECTIVITY:
		return checkConnectivity(store, r)
	case pkg.TYPE_LENGTHS:
		return checkLengths(cfg, r)
	}
	return nil
}

func checkConnectivity(store osmstore.Store, r *osm.Relation) []Finding {
	if !osmstore.HasKey(r.Tags, pkg.KEY_CONNECTIVITY) {
		return []Finding{newFinding(pkg.NO_CONNECTIVITY_TAG, r, "No connectivity tag in connectivity relation")}
	}
	if f, bad := checkRoles(r); bad {
		return []Finding{f}
	}
	if store.HasIncompleteMembers(r) {
		return nil
	}

	cm, err := connectivity.Decode(r.Tags.Find(pkg.KEY_CONNECTIVITY))
	if err != nil {
		token := ""
		var te *connectivity.TokenError
		if errors.As(err, &te) {
			token = te.Token
		}
		return []Finding{newFinding(pkg.MALFORMED_CONNECTIVITY, r, "Malformed connectivity tag near %q", token)}
	}
	if f, bad := checkLaneCount(store, r, cm); bad {
		return []Finding{f}
	}
	return nil
}

func checkRoles(r *osm.Relation) (Finding, bool) {
	var viaWays, viaNodes, toWays, fromWays int
	for _, m := range r.Members {
		switch m.Type {
		case osm.TypeWay:
			switch m.Role {
			case pkg.ROLE_FROM:
				fromWays++
			case pkg.ROLE_TO:
				toWays++
			case pkg.ROLE_VIA:
				viaWays++
			default:
				return unknownRole(r, m), true
			}
		case osm.TypeNode:
			if m.Role != pkg.ROLE_VIA {
				return unknownRole(r, m), true
			}
			viaNodes++
		}
	}

	switch {
	case (viaWays != 0 && viaNodes != 0) || viaNodes > 1:
		return newFinding(pkg.TOO_MANY_ROLES, r, "Relation contains %d %s roles", viaWays+viaNodes, pkg.ROLE_VIA), true
	case toWays != 1:
		return newFinding(pkg.TOO_MANY_ROLES, r, "Relation contains %d %s roles", toWays, pkg.ROLE_TO), true
	case fromWays != 1:
		return newFinding(pkg.TOO_MANY_ROLES, r, "Relation contains %d %s roles", fromWays, pkg.ROLE_FROM), true
	}
	return Finding{}, false
}

func unknownRole(r *osm.Relation, m osm.Member) Finding {
	f := newFinding(pkg.UNKNOWN_CONNECTIVITY_ROLE, r, "Unknown role %q in connectivity relation", m.Role)
	f.Highlight = m.FeatureID()
	return f
}

// memberLanes returns the lanes tag of the way with the given role. Members without
// a usable lanes tag are not compared.
func memberLanes(store osmstore.Store, r *osm.Relation, role string) (int, bool) {
	ways := osmstore.MemberWays(store, r, role)
	if len(ways) != 1 || !osmstore.HasKey(ways[0].Tags, pkg.KEY_LANES) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(ways[0].Tags.Find(pkg.KEY_LANES)))
	if err != nil {
		return 0, false
	}
	return n, true
}

func checkLaneCount(store osmstore.Store, r *osm.Relation, cm *connectivity.Map) (Finding, bool) {
	inconsistent := false
	if fromLanes, ok := memberLanes(store, r, pkg.ROLE_FROM); ok {
		if maxFrom, ok := cm.MaxFrom(); ok && maxFrom > fromLanes {
			inconsistent = true
		}
	}
	if toLanes, ok := memberLanes(store, r, pkg.ROLE_TO); ok {
		if maxTo, ok := cm.MaxTo(); ok && maxTo > toLanes {
			inconsistent = true
		}
	}
	if !inconsistent {
		return Finding{}, false
	}
	return newFinding(pkg.INCONSISTENT_LANE_COUNT, r, "Inconsistent lane numbering between relation and members"), true
}

func checkLengths(cfg util.Config, r *osm.Relation) []Finding {
	result := make([]Finding, 0)
	for _, key := range []string{pkg.KEY_LENGTHS_LEFT, pkg.KEY_LENGTHS_RIGHT} {
		_, dropped, err := connectivity.DecodeLengths(r.Tags.Find(key), cfg.MinExtraLaneLength)
		if err != nil {
			result = append(result, newFinding(pkg.MALFORMED_CONNECTIVITY, r, "Malformed %s tag", key))
			continue
		}
		if len(dropped) > 0 {
			result = append(result, newFinding(pkg.SHORT_EXTRA_LANE, r,
				"%s has %d extra lane(s) shorter than %v m which are ignored", key, len(dropped), cfg.MinExtraLaneLength))
		}
	}
	return result
}
