package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	GetTenantID() uuid.UUID
	PersistedVersion() int
	ToPersisted() (Record, error)
	PendingEvents() []DomainEvent
	DrainEvents() []DomainEvent
	MarkPersisted()
}

// Definition configures the generic engine for one aggregate type
type Definition[S ~string, P any] struct {
	Type        string
	Statuses    []S
	Initial     S
	Transitions *TransitionTable[S]
	Schema      *Schema

	// Defaults fills optional payload fields at creation, given the initial status
	Defaults func(p *P, status S)
	// Rules checks cross-field invariants against the candidate payload and status
	Rules func(p *P, status S) error
	// Clone deep-copies a payload. Payloads are JSON-cloned when nil.
	Clone func(p P) P
	// Redact blanks sensitive fields of a payload copy for the public view
	Redact func(p *P)
	// BusinessKey extracts the tenant-unique business identifier
	BusinessKey func(p *P) string
}

// HasStatus reports whether s belongs to the type's closed status set
func (d *Definition[S, P]) HasStatus(s S) bool {
	for _, st := range d.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (d *Definition[S, P]) clone(p P) (P, error) {
	if d.Clone != nil {
		return d.Clone(p), nil
	}
	var out P
	data, err := json.Marshal(p)
	if err != nil {
		return out, fmt.Errorf("clone %s payload: %w", d.Type, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("clone %s payload: %w", d.Type, err)
	}
	return out, nil
}

func (d *Definition[S, P]) check(p *P, status S) error {
	if err := d.Schema.Validate(p); err != nil {
		return err
	}
	if d.Rules != nil {
		return d.Rules(p, status)
	}
	return nil
}

// CreateInput is a create-shaped payload: business fields only, with an optional explicit status
type CreateInput[S ~string, P any] struct {
	Status  S
	Payload P
	Actor   string
}

// Mutation describes one guarded operation on an aggregate
type Mutation[S ~string, P any] struct {
	Op    string
	Actor string
	// Patch is an optional update input (pointer fields tagged omitempty) validated before Apply
	Patch interface{}
	// Apply edits the candidate payload copy
	Apply func(p *P) error
	// Next resolves the resulting status for operations whose table row has no fixed target
	Next func(p *P, current S) S
	// Kind overrides the event kind; defaults to StatusChanged or Updated
	Kind EventKind
}

// Aggregate is the generic aggregate instance. It is not safe for concurrent
// mutation; callers share it across goroutines only read-only.
type Aggregate[S ~string, P any] struct {
	def       *Definition[S, P]
	env       Envelope
	status    S
	payload   P
	persisted int
	events    []DomainEvent
	stamper   *Stamper
}

// Create validates a creation input and builds a new aggregate at version 1
// with a pending Created event. It neither persists nor publishes.
func Create[S ~string, P any](def *Definition[S, P], tenantID uuid.UUID, in CreateInput[S, P], opts ...Option) (*Aggregate[S, P], error) {
	o := buildOptions(opts)

	if tenantID == uuid.Nil {
		return nil, def.Schema.Violation("tenantId", "required", "This field is required")
	}

	status := in.Status
	if status == "" {
		status = def.Initial
	}
	if !def.HasStatus(status) {
		return nil, def.Schema.Violation("status", "oneof", "Must be one of: "+joinStatuses(def.Statuses))
	}

	payload, err := def.clone(in.Payload)
	if err != nil {
		return nil, err
	}
	if def.Defaults != nil {
		def.Defaults(&payload, status)
	}
	if err := def.check(&payload, status); err != nil {
		return nil, err
	}

	after, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", def.Type, err)
	}
	changes, patch, err := diffPayload([]byte("{}"), after)
	if err != nil {
		return nil, err
	}
	changes = append([]FieldChange{{Field: "status", After: string(status)}}, changes...)

	stamper := NewStamper(o.clock)
	a := &Aggregate[S, P]{
		def:     def,
		env:     NewEnvelope(tenantID, def.BusinessKey(&payload), stamper.Now(), in.Actor),
		status:  status,
		payload: payload,
		stamper: stamper,
	}
	a.events = append(a.events, NewAggregateEvent(a.env, def.Type, EventKindCreated, "create", changes, patch))
	return a, nil
}

// Restore rebuilds an aggregate from a persisted record without re-stamping it.
// Any record that no longer satisfies the schema yields a CorruptStateError.
func Restore[S ~string, P any](def *Definition[S, P], rec Record, opts ...Option) (*Aggregate[S, P], error) {
	o := buildOptions(opts)
	corrupt := func(cause error) error {
		return &CorruptStateError{AggregateType: def.Type, ID: rec.ID, Cause: cause}
	}

	switch {
	case rec.AggregateType != def.Type:
		return nil, corrupt(fmt.Errorf("record holds %q", rec.AggregateType))
	case rec.ID == uuid.Nil:
		return nil, corrupt(fmt.Errorf("missing id"))
	case rec.TenantID == uuid.Nil:
		return nil, corrupt(fmt.Errorf("missing tenant id"))
	case rec.Version < 1:
		return nil, corrupt(fmt.Errorf("version %d below 1", rec.Version))
	case rec.UpdatedAt.Before(rec.CreatedAt):
		return nil, corrupt(fmt.Errorf("updated_at precedes created_at"))
	}

	status := S(rec.Status)
	if !def.HasStatus(status) {
		return nil, corrupt(fmt.Errorf("unknown status %q", rec.Status))
	}

	var payload P
	dec := json.NewDecoder(bytes.NewReader(rec.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, corrupt(fmt.Errorf("decode payload: %w", err))
	}
	if err := def.check(&payload, status); err != nil {
		return nil, corrupt(err)
	}
	if key := def.BusinessKey(&payload); key != rec.BusinessKey {
		return nil, corrupt(fmt.Errorf("business key %q does not match payload %q", rec.BusinessKey, key))
	}

	return &Aggregate[S, P]{
		def:       def,
		env:       rec.Envelope(),
		status:    status,
		payload:   payload,
		persisted: rec.Version,
		stamper:   NewStamper(o.clock),
	}, nil
}

// Mutate runs one guarded operation: transition check, update-input validation,
// copy-on-write apply with full re-validation, then stamp and enqueue one event.
// On any error the aggregate is left unchanged. A status-changing operation
// re-applied in its target status returns nil without stamping.
func (a *Aggregate[S, P]) Mutate(m Mutation[S, P]) error {
	row, noop, err := a.def.Transitions.Check(a.status, m.Op)
	if err != nil {
		return err
	}
	if noop {
		return nil
	}

	if m.Patch != nil {
		if err := a.def.Schema.Validate(m.Patch); err != nil {
			return err
		}
	}

	candidate, err := a.def.clone(a.payload)
	if err != nil {
		return err
	}
	if m.Apply != nil {
		if err := m.Apply(&candidate); err != nil {
			return err
		}
	}

	target := a.status
	if row.ChangesStatus() {
		target = row.To
	} else if m.Next != nil {
		target = m.Next(&candidate, a.status)
	}
	if !a.def.HasStatus(target) {
		return fmt.Errorf("%s %s resolved unknown status %q", a.def.Type, m.Op, target)
	}

	if err := a.def.check(&candidate, target); err != nil {
		return err
	}
	if key := a.def.BusinessKey(&candidate); key != a.env.BusinessKey {
		return NewBusinessRuleViolation(a.def.Type, "immutable_business_key",
			fmt.Sprintf("business key %s cannot change", a.env.BusinessKey))
	}

	before, err := json.Marshal(a.payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", a.def.Type, err)
	}
	after, err := json.Marshal(candidate)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", a.def.Type, err)
	}
	changes, patch, err := diffPayload(before, after)
	if err != nil {
		return err
	}

	kind := m.Kind
	if target != a.status {
		changes = append([]FieldChange{{Field: "status", Before: string(a.status), After: string(target)}}, changes...)
		if kind == "" {
			kind = EventKindStatusChanged
		}
	}
	if kind == "" {
		kind = EventKindUpdated
	}

	env := a.env
	a.stamper.Stamp(&env, m.Actor)

	a.env = env
	a.status = target
	a.payload = candidate
	a.events = append(a.events, NewAggregateEvent(env, a.def.Type, kind, m.Op, changes, patch))
	return nil
}

// ID returns the aggregate identity
func (a *Aggregate[S, P]) ID() uuid.UUID { return a.env.ID }

// TenantID returns the owning tenant
func (a *Aggregate[S, P]) TenantID() uuid.UUID { return a.env.TenantID }

// BusinessKey returns the tenant-unique business identifier
func (a *Aggregate[S, P]) BusinessKey() string { return a.env.BusinessKey }

// Status returns the current status
func (a *Aggregate[S, P]) Status() S { return a.status }

// Version returns the current version
func (a *Aggregate[S, P]) Version() int { return a.env.Version }

// CreatedAt returns the creation timestamp
func (a *Aggregate[S, P]) CreatedAt() time.Time { return a.env.CreatedAt }

// UpdatedAt returns the last stamp time
func (a *Aggregate[S, P]) UpdatedAt() time.Time { return a.env.UpdatedAt }

// CreatedBy returns the creating actor, if any
func (a *Aggregate[S, P]) CreatedBy() string { return a.env.CreatedBy }

// UpdatedBy returns the last mutating actor, if any
func (a *Aggregate[S, P]) UpdatedBy() string { return a.env.UpdatedBy }

// Type returns the aggregate type name
func (a *Aggregate[S, P]) Type() string { return a.def.Type }

// Definition returns the type definition driving this aggregate
func (a *Aggregate[S, P]) Definition() *Definition[S, P] { return a.def }

// Payload returns a copy of the current payload
func (a *Aggregate[S, P]) Payload() P {
	p, err := a.def.clone(a.payload)
	if err != nil {
		return a.payload
	}
	return p
}

// View exposes the current payload read-only to fn without copying
func (a *Aggregate[S, P]) View(fn func(p *P)) {
	p := a.payload
	fn(&p)
}

// GetID implements Entity
func (a *Aggregate[S, P]) GetID() uuid.UUID { return a.env.ID }

// GetCreatedAt implements Entity
func (a *Aggregate[S, P]) GetCreatedAt() time.Time { return a.env.CreatedAt }

// GetUpdatedAt implements Entity
func (a *Aggregate[S, P]) GetUpdatedAt() time.Time { return a.env.UpdatedAt }

// GetVersion returns the aggregate version for optimistic locking
func (a *Aggregate[S, P]) GetVersion() int { return a.env.Version }

// GetTenantID returns the owning tenant
func (a *Aggregate[S, P]) GetTenantID() uuid.UUID { return a.env.TenantID }

// PersistedVersion is the version last loaded from or written to a store, 0 if never persisted
func (a *Aggregate[S, P]) PersistedVersion() int { return a.persisted }

// MarkPersisted records that the current version has been committed
func (a *Aggregate[S, P]) MarkPersisted() { a.persisted = a.env.Version }

// ToPersisted returns a flat snapshot of all fields
func (a *Aggregate[S, P]) ToPersisted() (Record, error) {
	payload, err := json.Marshal(a.payload)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s payload: %w", a.def.Type, err)
	}
	return Record{
		ID:            a.env.ID,
		TenantID:      a.env.TenantID,
		AggregateType: a.def.Type,
		BusinessKey:   a.env.BusinessKey,
		Status:        string(a.status),
		Version:       a.env.Version,
		CreatedAt:     a.env.CreatedAt,
		UpdatedAt:     a.env.UpdatedAt,
		CreatedBy:     a.env.CreatedBy,
		UpdatedBy:     a.env.UpdatedBy,
		Payload:       payload,
	}, nil
}

// ToPublic returns the tenant-free snapshot with sensitive fields redacted
func (a *Aggregate[S, P]) ToPublic() (PublicView[P], error) {
	p, err := a.def.clone(a.payload)
	if err != nil {
		return PublicView[P]{}, err
	}
	if a.def.Redact != nil {
		a.def.Redact(&p)
	}
	return PublicView[P]{
		ID:          a.env.ID,
		Type:        a.def.Type,
		BusinessKey: a.env.BusinessKey,
		Status:      string(a.status),
		Version:     a.env.Version,
		CreatedAt:   a.env.CreatedAt,
		UpdatedAt:   a.env.UpdatedAt,
		CreatedBy:   a.env.CreatedBy,
		UpdatedBy:   a.env.UpdatedBy,
		Payload:     p,
	}, nil
}

// PendingEvents returns the queued events without clearing them
func (a *Aggregate[S, P]) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.events))
	copy(out, a.events)
	return out
}

// DrainEvents returns and clears the queued events. Call it only after the
// record has been committed.
func (a *Aggregate[S, P]) DrainEvents() []DomainEvent {
	out := a.events
	a.events = nil
	return out
}

// diffPayload compares two JSON objects field by field and returns the
// top-level changes sorted by field name together with an RFC 6902 patch.
func diffPayload(before, after []byte) ([]FieldChange, json.RawMessage, error) {
	var b, f map[string]interface{}
	if err := json.Unmarshal(before, &b); err != nil {
		return nil, nil, fmt.Errorf("diff payload: %w", err)
	}
	if err := json.Unmarshal(after, &f); err != nil {
		return nil, nil, fmt.Errorf("diff payload: %w", err)
	}

	fields := make(map[string]struct{}, len(b)+len(f))
	for k := range b {
		fields[k] = struct{}{}
	}
	for k := range f {
		fields[k] = struct{}{}
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var changes []FieldChange
	for _, name := range names {
		if !reflect.DeepEqual(b[name], f[name]) {
			changes = append(changes, FieldChange{Field: name, Before: b[name], After: f[name]})
		}
	}

	ops, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, nil, fmt.Errorf("diff payload: %w", err)
	}
	var patch json.RawMessage
	if len(ops) > 0 {
		if patch, err = json.Marshal(ops); err != nil {
			return nil, nil, fmt.Errorf("diff payload: %w", err)
		}
	}
	return changes, patch, nil
}

func joinStatuses[S ~string](statuses []S) string {
	var buf bytes.Buffer
	for i, s := range statuses {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(string(s))
	}
	return buf.String()
}
