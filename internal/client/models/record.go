// Package models defines the domain record types kept in sync with the
// remote store: Plant, Note and Photo, plus the Record envelope carrying the
// sync metadata the server manages.
package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vterekhov/recordsync/internal/wire"
)

// RecordType tags the closed set of record variants.
type RecordType string

const (
	TypePlant RecordType = "Plant"
	TypeNote  RecordType = "Note"
	TypePhoto RecordType = "Photo"
)

// Remote schema field keys, one block per record type.
const (
	FieldPlantName = "name"

	FieldNoteTitle = "title"
	FieldNoteBody  = "body"
	FieldNotePlant = "plant"

	FieldPhotoData      = "photoData"
	FieldPhotoThumbnail = "photoThumbnail"
	FieldPhotoNote      = "note"
)

var ErrUnknownType = errors.New("unknown record type")

// Resolver looks up an already-registered record by its remote name.
// Relationship fields are recomputed through it on every populate; they are
// never stored inline.
type Resolver func(remoteName string) *Record

// Variant is the per-type half of a record: it knows how to move its
// attributes to and from a remote field map. The set of implementations is
// closed over Plant, Note and Photo.
type Variant interface {
	Type() RecordType

	// populate applies fields to the variant. Missing keys leave existing
	// values untouched; relationship fields are recomputed via resolve.
	populate(rec *Record, fields map[string]wire.Field, resolve Resolver)

	// serialize writes the variant's attributes into fields, omitting
	// absent values.
	serialize(fields map[string]wire.Field)
}

// Record is one domain record plus its sync metadata. ID is assigned locally
// at creation and stable for the object's lifetime; RemoteName is empty until
// the first successful save. Shared is recomputed from the authoritative
// remote representation on every populate.
type Record struct {
	ID         string
	RemoteName string
	Zone       string
	Owner      string
	Shared     bool
	Version    int64

	Body Variant
}

// New constructs an empty record of the given type. Unknown tags yield
// ErrUnknownType; callers skip (and log) such records rather than fail.
func New(t RecordType) (*Record, error) {
	var v Variant
	switch t {
	case TypePlant:
		v = &Plant{}
	case TypeNote:
		v = &Note{}
	case TypePhoto:
		v = &Photo{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return &Record{ID: uuid.NewString(), Body: v}, nil
}

// NewPlant creates an unsaved plant record.
func NewPlant(name string) *Record {
	r, _ := New(TypePlant)
	r.Body.(*Plant).Name = name
	return r
}

// NewNote creates an unsaved note record, optionally linked to its plant.
func NewNote(title, body string, plant *Record) *Record {
	r, _ := New(TypeNote)
	n := r.Body.(*Note)
	n.Title = title
	n.Body = body
	n.Plant = plant
	return r
}

// NewPhoto creates an unsaved photo record from asset storage keys.
func NewPhoto(imageKey, thumbnailKey string, note *Record) *Record {
	r, _ := New(TypePhoto)
	p := r.Body.(*Photo)
	p.ImageKey = imageKey
	p.ThumbnailKey = thumbnailKey
	p.Note = note
	return r
}

// Type reports the variant's type tag.
func (r *Record) Type() RecordType { return r.Body.Type() }

// Saved reports whether the record has a remote identity.
func (r *Record) Saved() bool { return r.RemoteName != "" }

// PopulateFrom merges the remote representation into the record. Server
// metadata is taken wholesale; variant fields follow partial-update
// semantics.
func (r *Record) PopulateFrom(rr *wire.Record, resolve Resolver) {
	r.RemoteName = rr.Name
	r.Zone = rr.Zone
	r.Owner = rr.Owner
	r.Shared = rr.Shared
	r.Version = rr.Version
	r.Body.populate(r, rr.Fields, resolve)
}

// Remote serializes the record into its wire representation.
func (r *Record) Remote() *wire.Record {
	fields := make(map[string]wire.Field)
	r.Body.serialize(fields)
	return &wire.Record{
		Name:   r.RemoteName,
		Zone:   r.Zone,
		Type:   string(r.Type()),
		Fields: fields,
	}
}
