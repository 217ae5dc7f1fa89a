// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/seating-engine/seating"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a seating.TxStore kept in process memory.
// Records are listed in insertion order.
type Memory struct {
	mu    sync.RWMutex
	state *memoryState
}

func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

var _ seating.TxStore = (*Memory)(nil)

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(seating.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) read(fn func(s *memoryState) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.state)
}

func (m *Memory) write(fn func(s *memoryState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *Memory) CreateGuest(ctx context.Context, g seating.Guest) error {
	return m.write(func(s *memoryState) error { return s.CreateGuest(ctx, g) })
}

func (m *Memory) GetGuest(ctx context.Context, id seating.GuestID) (g seating.Guest, err error) {
	err = m.read(func(s *memoryState) error { g, err = s.GetGuest(ctx, id); return err })
	return g, err
}

func (m *Memory) ListGuests(ctx context.Context, projectID seating.ProjectID) (out []seating.Guest, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.ListGuests(ctx, projectID); return err })
	return out, err
}

func (m *Memory) DeleteGuest(ctx context.Context, id seating.GuestID) error {
	return m.write(func(s *memoryState) error { return s.DeleteGuest(ctx, id) })
}

func (m *Memory) CreateTable(ctx context.Context, t seating.Table) error {
	return m.write(func(s *memoryState) error { return s.CreateTable(ctx, t) })
}

func (m *Memory) GetTable(ctx context.Context, id seating.TableID) (t seating.Table, err error) {
	err = m.read(func(s *memoryState) error { t, err = s.GetTable(ctx, id); return err })
	return t, err
}

func (m *Memory) ListTables(ctx context.Context, projectID seating.ProjectID) (out []seating.Table, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.ListTables(ctx, projectID); return err })
	return out, err
}

func (m *Memory) DeleteTable(ctx context.Context, id seating.TableID) error {
	return m.write(func(s *memoryState) error { return s.DeleteTable(ctx, id) })
}

func (m *Memory) GetAssignmentByGuest(ctx context.Context, guestID seating.GuestID) (a *seating.Assignment, err error) {
	err = m.read(func(s *memoryState) error { a, err = s.GetAssignmentByGuest(ctx, guestID); return err })
	return a, err
}

func (m *Memory) ListAssignments(ctx context.Context, projectID seating.ProjectID) (out []seating.Assignment, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.ListAssignments(ctx, projectID); return err })
	return out, err
}

func (m *Memory) ListAssignmentsByTable(ctx context.Context, tableID seating.TableID) (out []seating.Assignment, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.ListAssignmentsByTable(ctx, tableID); return err })
	return out, err
}

func (m *Memory) CreateAssignment(ctx context.Context, a seating.Assignment) error {
	return m.write(func(s *memoryState) error { return s.CreateAssignment(ctx, a) })
}

func (m *Memory) MoveAssignment(ctx context.Context, guestID seating.GuestID, tableID seating.TableID, at time.Time) error {
	return m.write(func(s *memoryState) error { return s.MoveAssignment(ctx, guestID, tableID, at) })
}

func (m *Memory) DeleteAssignment(ctx context.Context, guestID seating.GuestID) error {
	return m.write(func(s *memoryState) error { return s.DeleteAssignment(ctx, guestID) })
}

func (m *Memory) CreateConstraint(ctx context.Context, c seating.Constraint) error {
	return m.write(func(s *memoryState) error { return s.CreateConstraint(ctx, c) })
}

func (m *Memory) GetConstraint(ctx context.Context, id seating.ConstraintID) (c seating.Constraint, err error) {
	err = m.read(func(s *memoryState) error { c, err = s.GetConstraint(ctx, id); return err })
	return c, err
}

func (m *Memory) ListConstraints(ctx context.Context, projectID seating.ProjectID) (out []seating.Constraint, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.ListConstraints(ctx, projectID); return err })
	return out, err
}

func (m *Memory) ListConstraintsForGuest(ctx context.Context, guestID seating.GuestID) (out []seating.Constraint, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.ListConstraintsForGuest(ctx, guestID); return err })
	return out, err
}

func (m *Memory) DeleteConstraint(ctx context.Context, id seating.ConstraintID) error {
	return m.write(func(s *memoryState) error { return s.DeleteConstraint(ctx, id) })
}

func (m *Memory) DeleteProject(ctx context.Context, projectID seating.ProjectID) error {
	return m.write(func(s *memoryState) error { return s.DeleteProject(ctx, projectID) })
}

func (m *Memory) AppendAudit(ctx context.Context, entry seating.AuditEntry) error {
	return m.write(func(s *memoryState) error { return s.AppendAudit(ctx, entry) })
}

func (m *Memory) QueryAudit(ctx context.Context, filter seating.AuditFilter) (out []seating.AuditEntry, err error) {
	err = m.read(func(s *memoryState) error { out, err = s.QueryAudit(ctx, filter); return err })
	return out, err
}

// =============================================================================
// MEMORY STATE - Unlocked data; also the transactional view handed to WithTx
// =============================================================================

type memoryState struct {
	guests      map[seating.GuestID]seating.Guest
	guestOrder  []seating.GuestID
	tables      map[seating.TableID]seating.Table
	tableOrder  []seating.TableID
	assignments map[seating.GuestID]seating.Assignment
	assignOrder []seating.GuestID
	constraints map[seating.ConstraintID]seating.Constraint
	consOrder   []seating.ConstraintID
	audit       []seating.AuditEntry
}

func newMemoryState() *memoryState {
	return &memoryState{
		guests:      make(map[seating.GuestID]seating.Guest),
		tables:      make(map[seating.TableID]seating.Table),
		assignments: make(map[seating.GuestID]seating.Assignment),
		constraints: make(map[seating.ConstraintID]seating.Constraint),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.guests {
		c.guests[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.constraints {
		c.constraints[k] = v
	}
	c.guestOrder = append(c.guestOrder, s.guestOrder...)
	c.tableOrder = append(c.tableOrder, s.tableOrder...)
	c.assignOrder = append(c.assignOrder, s.assignOrder...)
	c.consOrder = append(c.consOrder, s.consOrder...)
	c.audit = append(c.audit, s.audit...)
	return c
}

func cloneGuest(g seating.Guest) seating.Guest {
	g.Tags = append([]string(nil), g.Tags...)
	return g
}

func remove[T comparable](order []T, v T) []T {
	for i, x := range order {
		if x == v {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

// Guests

func (s *memoryState) CreateGuest(_ context.Context, g seating.Guest) error {
	if _, ok := s.guests[g.ID]; ok {
		return fmt.Errorf("%w: guest %q", seating.ErrAlreadyExists, g.ID)
	}
	s.guests[g.ID] = cloneGuest(g)
	s.guestOrder = append(s.guestOrder, g.ID)
	return nil
}

func (s *memoryState) GetGuest(_ context.Context, id seating.GuestID) (seating.Guest, error) {
	g, ok := s.guests[id]
	if !ok {
		return seating.Guest{}, &seating.NotFoundError{Kind: "guest", ID: string(id)}
	}
	return cloneGuest(g), nil
}

func (s *memoryState) ListGuests(_ context.Context, projectID seating.ProjectID) ([]seating.Guest, error) {
	var out []seating.Guest
	for _, id := range s.guestOrder {
		if g := s.guests[id]; g.ProjectID == projectID {
			out = append(out, cloneGuest(g))
		}
	}
	return out, nil
}

func (s *memoryState) DeleteGuest(_ context.Context, id seating.GuestID) error {
	if _, ok := s.guests[id]; !ok {
		return &seating.NotFoundError{Kind: "guest", ID: string(id)}
	}
	delete(s.guests, id)
	s.guestOrder = remove(s.guestOrder, id)
	if _, ok := s.assignments[id]; ok {
		delete(s.assignments, id)
		s.assignOrder = remove(s.assignOrder, id)
	}
	for _, cid := range append([]seating.ConstraintID(nil), s.consOrder...) {
		if c := s.constraints[cid]; c.Guest1ID == id || c.Guest2ID == id {
			delete(s.constraints, cid)
			s.consOrder = remove(s.consOrder, cid)
		}
	}
	return nil
}

// Tables

func (s *memoryState) CreateTable(_ context.Context, t seating.Table) error {
	if _, ok := s.tables[t.ID]; ok {
		return fmt.Errorf("%w: table %q", seating.ErrAlreadyExists, t.ID)
	}
	s.tables[t.ID] = t
	s.tableOrder = append(s.tableOrder, t.ID)
	return nil
}

func (s *memoryState) GetTable(_ context.Context, id seating.TableID) (seating.Table, error) {
	t, ok := s.tables[id]
	if !ok {
		return seating.Table{}, &seating.NotFoundError{Kind: "table", ID: string(id)}
	}
	return t, nil
}

func (s *memoryState) ListTables(_ context.Context, projectID seating.ProjectID) ([]seating.Table, error) {
	var out []seating.Table
	for _, id := range s.tableOrder {
		if t := s.tables[id]; t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryState) DeleteTable(_ context.Context, id seating.TableID) error {
	if _, ok := s.tables[id]; !ok {
		return &seating.NotFoundError{Kind: "table", ID: string(id)}
	}
	for _, a := range s.assignments {
		if a.TableID == id {
			return seating.ErrTableOccupied
		}
	}
	delete(s.tables, id)
	s.tableOrder = remove(s.tableOrder, id)
	return nil
}

// Assignments

func (s *memoryState) GetAssignmentByGuest(_ context.Context, guestID seating.GuestID) (*seating.Assignment, error) {
	a, ok := s.assignments[guestID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *memoryState) ListAssignments(_ context.Context, projectID seating.ProjectID) ([]seating.Assignment, error) {
	var out []seating.Assignment
	for _, gid := range s.assignOrder {
		if a := s.assignments[gid]; a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryState) ListAssignmentsByTable(_ context.Context, tableID seating.TableID) ([]seating.Assignment, error) {
	var out []seating.Assignment
	for _, gid := range s.assignOrder {
		if a := s.assignments[gid]; a.TableID == tableID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryState) CreateAssignment(_ context.Context, a seating.Assignment) error {
	if _, ok := s.guests[a.GuestID]; !ok {
		return &seating.NotFoundError{Kind: "guest", ID: string(a.GuestID)}
	}
	if _, ok := s.tables[a.TableID]; !ok {
		return &seating.NotFoundError{Kind: "table", ID: string(a.TableID)}
	}
	if _, ok := s.assignments[a.GuestID]; ok {
		return seating.ErrAlreadyAssigned
	}
	s.assignments[a.GuestID] = a
	s.assignOrder = append(s.assignOrder, a.GuestID)
	return nil
}

func (s *memoryState) MoveAssignment(_ context.Context, guestID seating.GuestID, tableID seating.TableID, at time.Time) error {
	a, ok := s.assignments[guestID]
	if !ok {
		return seating.ErrNotAssigned
	}
	if _, ok := s.tables[tableID]; !ok {
		return &seating.NotFoundError{Kind: "table", ID: string(tableID)}
	}
	a.TableID = tableID
	a.UpdatedAt = at
	s.assignments[guestID] = a
	return nil
}

func (s *memoryState) DeleteAssignment(_ context.Context, guestID seating.GuestID) error {
	if _, ok := s.assignments[guestID]; !ok {
		return seating.ErrNotAssigned
	}
	delete(s.assignments, guestID)
	s.assignOrder = remove(s.assignOrder, guestID)
	return nil
}

// Constraints

func (s *memoryState) CreateConstraint(_ context.Context, c seating.Constraint) error {
	for _, existing := range s.constraints {
		if existing.ProjectID == c.ProjectID && existing.Involves(c.Guest1ID, c.Guest2ID) {
			return seating.ErrDuplicateConstraint
		}
	}
	s.constraints[c.ID] = c
	s.consOrder = append(s.consOrder, c.ID)
	return nil
}

func (s *memoryState) GetConstraint(_ context.Context, id seating.ConstraintID) (seating.Constraint, error) {
	c, ok := s.constraints[id]
	if !ok {
		return seating.Constraint{}, &seating.NotFoundError{Kind: "constraint", ID: string(id)}
	}
	return c, nil
}

func (s *memoryState) ListConstraints(_ context.Context, projectID seating.ProjectID) ([]seating.Constraint, error) {
	var out []seating.Constraint
	for _, id := range s.consOrder {
		if c := s.constraints[id]; c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryState) ListConstraintsForGuest(_ context.Context, guestID seating.GuestID) ([]seating.Constraint, error) {
	var out []seating.Constraint
	for _, id := range s.consOrder {
		if c := s.constraints[id]; c.Guest1ID == guestID || c.Guest2ID == guestID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryState) DeleteConstraint(_ context.Context, id seating.ConstraintID) error {
	if _, ok := s.constraints[id]; !ok {
		return &seating.NotFoundError{Kind: "constraint", ID: string(id)}
	}
	delete(s.constraints, id)
	s.consOrder = remove(s.consOrder, id)
	return nil
}

// Projects

func (s *memoryState) DeleteProject(_ context.Context, projectID seating.ProjectID) error {
	for _, gid := range append([]seating.GuestID(nil), s.assignOrder...) {
		if s.assignments[gid].ProjectID == projectID {
			delete(s.assignments, gid)
			s.assignOrder = remove(s.assignOrder, gid)
		}
	}
	for _, cid := range append([]seating.ConstraintID(nil), s.consOrder...) {
		if s.constraints[cid].ProjectID == projectID {
			delete(s.constraints, cid)
			s.consOrder = remove(s.consOrder, cid)
		}
	}
	for _, gid := range append([]seating.GuestID(nil), s.guestOrder...) {
		if s.guests[gid].ProjectID == projectID {
			delete(s.guests, gid)
			s.guestOrder = remove(s.guestOrder, gid)
		}
	}
	for _, tid := range append([]seating.TableID(nil), s.tableOrder...) {
		if s.tables[tid].ProjectID == projectID {
			delete(s.tables, tid)
			s.tableOrder = remove(s.tableOrder, tid)
		}
	}
	kept := s.audit[:0:0]
	for _, e := range s.audit {
		if e.ProjectID != projectID {
			kept = append(kept, e)
		}
	}
	s.audit = kept
	return nil
}

// Audit

func (s *memoryState) AppendAudit(_ context.Context, entry seating.AuditEntry) error {
	s.audit = append(s.audit, entry)
	return nil
}

// QueryAudit returns matching entries, newest first.
func (s *memoryState) QueryAudit(_ context.Context, filter seating.AuditFilter) ([]seating.AuditEntry, error) {
	var out []seating.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		if filter.Matches(s.audit[i]) {
			out = append(out, s.audit[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
