package resource

// FieldKind selects how a raw JSON or query value is coerced before it is
// written to a column.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindText    FieldKind = "text"
	KindEmail   FieldKind = "email"
	KindBool    FieldKind = "bool"
	KindInt     FieldKind = "int"
	KindDecimal FieldKind = "decimal"
	KindDate    FieldKind = "date"
	KindID      FieldKind = "id"
	KindJSON    FieldKind = "json"
)

// Field describes one client-writable attribute.
type Field struct {
	Column   string
	Kind     FieldKind
	Required bool
}

// Descriptor is the per-entity configuration of an Engine.
type Descriptor struct {
	Name         string
	SearchFields []string
	Filterable   []string
	Fields       map[string]Field
	HasOwner     bool
	Preloads     []string
}

var readOnlyFields = map[string]struct{}{
	"id":         {},
	"tenant_id":  {},
	"removed":    {},
	"created":    {},
	"updated":    {},
	"created_by": {},
}

func (d Descriptor) field(name string) (Field, bool) {
	f, ok := d.Fields[name]
	if !ok {
		return Field{}, false
	}
	if f.Column == "" {
		f.Column = name
	}
	return f, true
}

func (d Descriptor) filterable(name string) (Field, bool) {
	for _, allowed := range d.Filterable {
		if allowed == name {
			return d.field(name)
		}
	}
	return Field{}, false
}
