package models

import "github.com/vterekhov/recordsync/internal/wire"

// Plant is a plant the user keeps notes on. Notes is the reverse side of the
// note→plant reference and is recomputed as notes resolve their back-link.
type Plant struct {
	Name  string
	Notes []*Record
}

func (p *Plant) Type() RecordType { return TypePlant }

func (p *Plant) populate(rec *Record, fields map[string]wire.Field, resolve Resolver) {
	if f, ok := fields[FieldPlantName]; ok && f.Kind == wire.FieldString {
		p.Name = f.String
	}
}

func (p *Plant) serialize(fields map[string]wire.Field) {
	fields[FieldPlantName] = wire.StringField(p.Name)
}

// attach registers a note record under this plant, once.
func (p *Plant) attach(note *Record) {
	for _, n := range p.Notes {
		if n.ID == note.ID {
			return
		}
	}
	p.Notes = append(p.Notes, note)
}

// Note is a titled text note about a plant, owning an ordered sequence of
// photos. Plant is a non-owning back-reference used for remote relationship
// encoding.
type Note struct {
	Title  string
	Body   string
	Photos []*Record
	Plant  *Record
}

func (n *Note) Type() RecordType { return TypeNote }

func (n *Note) populate(rec *Record, fields map[string]wire.Field, resolve Resolver) {
	if f, ok := fields[FieldNoteTitle]; ok && f.Kind == wire.FieldString {
		n.Title = f.String
	}
	if f, ok := fields[FieldNoteBody]; ok && f.Kind == wire.FieldString {
		n.Body = f.String
	}
	if f, ok := fields[FieldNotePlant]; ok && f.Kind == wire.FieldReference {
		// Relationship fields are recomputed in full. The referenced
		// plant must already be registered; otherwise the link stays
		// unresolved until the next populate.
		n.Plant = resolve(f.Reference)
		if n.Plant != nil {
			if plant, ok := n.Plant.Body.(*Plant); ok {
				plant.attach(rec)
			}
		}
	}
}

func (n *Note) serialize(fields map[string]wire.Field) {
	fields[FieldNoteTitle] = wire.StringField(n.Title)
	fields[FieldNoteBody] = wire.StringField(n.Body)
	if n.Plant != nil && n.Plant.Saved() {
		fields[FieldNotePlant] = wire.ReferenceField(n.Plant.RemoteName)
	}
}

// attach registers a photo record under this note, once, preserving arrival
// order.
func (n *Note) attach(photo *Record) {
	for _, p := range n.Photos {
		if p.ID == photo.ID {
			return
		}
	}
	n.Photos = append(n.Photos, photo)
}

// Photo references full-size and thumbnail image blobs by their storage keys.
// The bytes themselves live in the asset store, never inside the record.
type Photo struct {
	ImageKey     string
	ThumbnailKey string
	Note         *Record
}

func (p *Photo) Type() RecordType { return TypePhoto }

func (p *Photo) populate(rec *Record, fields map[string]wire.Field, resolve Resolver) {
	if f, ok := fields[FieldPhotoData]; ok && f.Kind == wire.FieldAsset {
		p.ImageKey = f.Asset
	}
	if f, ok := fields[FieldPhotoThumbnail]; ok && f.Kind == wire.FieldAsset {
		p.ThumbnailKey = f.Asset
	}
	if f, ok := fields[FieldPhotoNote]; ok && f.Kind == wire.FieldReference {
		p.Note = resolve(f.Reference)
		if p.Note != nil {
			if note, ok := p.Note.Body.(*Note); ok {
				note.attach(rec)
			}
		}
	}
}

func (p *Photo) serialize(fields map[string]wire.Field) {
	if p.ImageKey != "" {
		fields[FieldPhotoData] = wire.AssetField(p.ImageKey)
	}
	if p.ThumbnailKey != "" {
		fields[FieldPhotoThumbnail] = wire.AssetField(p.ThumbnailKey)
	}
	if p.Note != nil && p.Note.Saved() {
		fields[FieldPhotoNote] = wire.ReferenceField(p.Note.RemoteName)
	}
}
