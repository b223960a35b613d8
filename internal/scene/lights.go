package scene

import (
	"fmt"

	"github.com/jinzhu/copier"

	"umap-export/internal/asset"
)

// LightProps is the raw property set of one light component.
type LightProps struct {
	Type       string
	Name       string
	Properties asset.Properties
}

// LightRecord is the bundle of light components attached at one context.
type LightRecord struct {
	Props []LightProps
}

// Lights is the append-only light list of a document. A record's position is
// the index that node light indices refer to.
type Lights struct {
	records []LightRecord
}

// NewLightRecord snapshots the given light components. Properties are deep
// copied so later mutation of the source objects does not leak into the record.
func NewLightRecord(components ...*asset.Object) (LightRecord, error) {
	rec := LightRecord{Props: make([]LightProps, 0, len(components))}
	for _, c := range components {
		props := asset.Properties{}
		if len(c.Props) > 0 {
			if err := copier.CopyWithOption(&props, c.Props, copier.Option{DeepCopy: true}); err != nil {
				return LightRecord{}, fmt.Errorf("scene: copy light %s: %w", c.Name, err)
			}
		}
		rec.Props = append(rec.Props, LightProps{Type: c.Kind, Name: c.Name, Properties: props})
	}
	return rec, nil
}

// Add appends rec and returns its 1-based position.
func (l *Lights) Add(rec LightRecord) int {
	l.records = append(l.records, rec)
	return len(l.records)
}

// Len returns the number of records.
func (l *Lights) Len() int {
	return len(l.records)
}

// Records returns the records in append order.
func (l *Lights) Records() []LightRecord {
	return l.records
}
