package store

import (
	"fmt"

	"github.com/tsawler/pdfstore/core"
)

// Object is an indirect object: a value plus the reference it is known by.
// Its identity is assigned when it is created or inserted and changes only
// when the owning store is renumbered.
type Object struct {
	ref   core.Reference
	value core.Object
	owner *Store
}

// NewObject creates a free-standing object, typically a parsed object about
// to be handed to Store.PushBack or a trailer dictionary. A nil value becomes
// core.Null{}.
func NewObject(ref core.Reference, value core.Object) *Object {
	if value == nil {
		value = core.Null{}
	}
	return &Object{ref: ref, value: value}
}

// Reference returns the object's identity.
func (o *Object) Reference() core.Reference {
	return o.ref
}

// Value returns the object's value.
func (o *Object) Value() core.Object {
	return o.value
}

// SetValue replaces the object's value. A nil value becomes core.Null{}.
func (o *Object) SetValue(value core.Object) {
	if value == nil {
		value = core.Null{}
	}
	o.value = value
}

// Store returns the store that owns the object, or nil if the object is free
// standing, borrowed, or was removed from its store.
func (o *Object) Store() *Store {
	return o.owner
}

// Dict returns the object's dictionary: the value itself if it is a
// dictionary, or the stream dictionary if it is a stream.
func (o *Object) Dict() (core.Dict, bool) {
	switch v := o.value.(type) {
	case core.Dict:
		return v, true
	case *core.Stream:
		return v.Dict, v.Dict != nil
	}
	return nil, false
}

func (o *Object) String() string {
	return fmt.Sprintf("%d %d obj %s", o.ref.Number, o.ref.Generation, o.value)
}

// slot is one entry of the store. The variant decides ownership: an owned
// object is counted, released and reclaimed by the store; a borrowed one
// belongs to someone else and is only visible through the store.
type slot interface {
	object() *Object
	owned() bool
}

type ownedSlot struct{ obj *Object }

func (s ownedSlot) object() *Object { return s.obj }
func (s ownedSlot) owned() bool     { return true }

type borrowedSlot struct{ obj *Object }

func (s borrowedSlot) object() *Object { return s.obj }
func (s borrowedSlot) owned() bool     { return false }
