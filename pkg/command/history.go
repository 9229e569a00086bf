package command

import (
	"errors"

	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"go.uber.org/zap"
)

// Target is the data store a committed unit of work is applied to.
// Apply returns the change that reverts c.
type Target interface {
	Apply(c Change) (Change, error)
}

type entry struct {
	name    string
	forward []Change
	inverse []Change
}

// History is an append-only, undo-capable log of committed units of work.
type History struct {
	target Target
	undo   []entry
	redo   []entry
	log    *zap.Logger
}

func NewHistory(target Target, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{
		target: target,
		undo:   make([]entry, 0),
		redo:   make([]entry, 0),
		log:    log,
	}
}

var ErrNothingToUndo = errors.New("nothing to undo")

// Add commits u. Either every change of u is applied or none is.
func (h *History) Add(u *UnitOfWork) error {
	if u.IsEmpty() {
		return nil
	}
	forward := u.Changes()
	inverse, err := h.applyAll(forward)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInvalidOperation, "cannot commit %q", u.GetName())
	}
	h.undo = append(h.undo, entry{name: u.GetName(), forward: forward, inverse: inverse})
	h.redo = h.redo[:0]
	h.log.Debug("committed unit of work", zap.String("name", u.GetName()), zap.Int("changes", len(forward)))
	return nil
}

func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}
	e := h.undo[len(h.undo)-1]
	if _, err := h.applyAll(e.inverse); err != nil {
		return util.WrapErrorf(err, util.ErrInvalidOperation, "cannot undo %q", e.name)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
	return nil
}

func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return ErrNothingToUndo
	}
	e := h.redo[len(h.redo)-1]
	inverse, err := h.applyAll(e.forward)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInvalidOperation, "cannot redo %q", e.name)
	}
	e.inverse = inverse
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, e)
	return nil
}

func (h *History) Len() int {
	return len(h.undo)
}

// applyAll applies changes in order and returns their inverses in reverse order.
// On failure the already applied changes are rolled back.
func (h *History) applyAll(changes []Change) ([]Change, error) {
	inverse := make([]Change, 0, len(changes))
	for _, c := range changes {
		inv, err := h.target.Apply(c)
		if err != nil {
			for i := len(inverse) - 1; i >= 0; i-- {
				if _, rerr := h.target.Apply(inverse[i]); rerr != nil {
					h.log.Error("rollback failed", zap.Error(rerr))
				}
			}
			return nil, err
		}
		inverse = append(inverse, inv)
	}
	return util.ReverseG(inverse), nil
}
