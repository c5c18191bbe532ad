package record

type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColBool
	ColFloat64
	ColText  // UTF-8
	ColBytes // opaque bytes
)

type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable,omitempty"`
}

// Schema describes the positional column layout of one table format version.
// Once a version ships, its column order and types never change; a new
// layout gets a new version number and a new Schema value.
type Schema struct {
	Cols []Column `json:"cols"`
}

func (s Schema) NumCols() int { return len(s.Cols) }

// Equal reports whether two schemas have the same column layout.
func (s Schema) Equal(o Schema) bool {
	if len(s.Cols) != len(o.Cols) {
		return false
	}
	for i, c := range s.Cols {
		if c != o.Cols[i] {
			return false
		}
	}
	return true
}
