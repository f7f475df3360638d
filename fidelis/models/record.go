package models

// Record is one row of a vendor table: column name to raw text.
type Record map[string]string

// Get returns the column value and whether the column was present.
func (r Record) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}
