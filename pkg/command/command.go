package command

import (
	"github.com/paulmach/osm"
)

// enum of staged change kinds
type Op uint8

const (
	OP_SET_TAG Op = iota // Value == "" removes the tag
	OP_CREATE
	OP_PURGE
	OP_DELETE
	OP_UNDELETE
)

func (o Op) String() string {
	switch o {
	case OP_SET_TAG:
		return "set_tag"
	case OP_CREATE:
		return "create"
	case OP_PURGE:
		return "purge"
	case OP_DELETE:
		return "delete"
	case OP_UNDELETE:
		return "undelete"
	default:
		return "unknown"
	}
}

type Change struct {
	Op       Op
	Relation osm.RelationID
	Key      string
	Value    string
	Created  *osm.Relation
}

// IDAllocator hands out ids for relations created inside a unit of work.
type IDAllocator interface {
	NewRelationID() osm.RelationID
}

// UnitOfWork stages the relation edits of one logical edit. Nothing is applied
// until the unit is handed to a History.
type UnitOfWork struct {
	name    string
	alloc   IDAllocator
	changes []Change
	created map[osm.RelationID]*osm.Relation
	staged  map[osm.RelationID]map[string]string
	deleted map[osm.RelationID]bool
}

func Begin(name string, alloc IDAllocator) *UnitOfWork {
	return &UnitOfWork{
		name:    name,
		alloc:   alloc,
		changes: make([]Change, 0),
		created: make(map[osm.RelationID]*osm.Relation),
		staged:  make(map[osm.RelationID]map[string]string),
		deleted: make(map[osm.RelationID]bool),
	}
}

func (u *UnitOfWork) GetName() string {
	return u.name
}

// Put stages key=value on the relation. An empty value removes the key.
func (u *UnitOfWork) Put(id osm.RelationID, key, value string) {
	if r, ok := u.created[id]; ok {
		r.Tags = SetTag(r.Tags, key, value)
		return
	}
	if _, ok := u.staged[id]; !ok {
		u.staged[id] = make(map[string]string)
	}
	u.staged[id][key] = value
	u.changes = append(u.changes, Change{Op: OP_SET_TAG, Relation: id, Key: key, Value: value})
}

func (u *UnitOfWork) Remove(id osm.RelationID, key string) {
	u.Put(id, key, "")
}

// Create stages a new relation. A zero id is replaced with a freshly allocated one.
func (u *UnitOfWork) Create(r *osm.Relation) osm.RelationID {
	if r.ID == 0 {
		r.ID = u.alloc.NewRelationID()
	}
	r.Visible = true
	u.created[r.ID] = r
	u.changes = append(u.changes, Change{Op: OP_CREATE, Relation: r.ID, Created: r})
	return r.ID
}

func (u *UnitOfWork) Delete(id osm.RelationID) {
	if u.deleted[id] {
		return
	}
	u.deleted[id] = true
	u.changes = append(u.changes, Change{Op: OP_DELETE, Relation: id})
}

// Value returns the value of key on r as staged by this unit of work.
func (u *UnitOfWork) Value(r *osm.Relation, key string) string {
	if c, ok := u.created[r.ID]; ok {
		return c.Tags.Find(key)
	}
	if staged, ok := u.staged[r.ID]; ok {
		if v, ok := staged[key]; ok {
			return v
		}
	}
	return r.Tags.Find(key)
}

func (u *UnitOfWork) IsDeleted(id osm.RelationID) bool {
	return u.deleted[id]
}

func (u *UnitOfWork) CreatedRelations() []*osm.Relation {
	result := make([]*osm.Relation, 0, len(u.created))
	for _, c := range u.changes {
		if c.Op == OP_CREATE {
			result = append(result, c.Created)
		}
	}
	return result
}

func (u *UnitOfWork) Changes() []Change {
	result := make([]Change, len(u.changes))
	copy(result, u.changes)
	return result
}

func (u *UnitOfWork) IsEmpty() bool {
	return len(u.changes) == 0
}

// SetTag returns a copy of tags with key set to value, or removed when value is empty.
func SetTag(tags osm.Tags, key, value string) osm.Tags {
	result := make(osm.Tags, 0, len(tags)+1)
	found := false
	for _, t := range tags {
		if t.Key == key {
			found = true
			if value != "" {
				result = append(result, osm.Tag{Key: key, Value: value})
			}
			continue
		}
		result = append(result, t)
	}
	if !found && value != "" {
		result = append(result, osm.Tag{Key: key, Value: value})
	}
	return result
}
