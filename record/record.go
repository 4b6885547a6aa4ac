package record

import "sort"

// Field is a single named value inside a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field names to values. Field order is the
// order of first insertion and is what serializers emit; fingerprinting sorts
// names and ignores it.
//
// Records are values: a copy shares storage with the original until either
// side calls Set, which writes into fresh storage.
type Record struct {
	fields []Field
	index  map[string]int
}

// New builds a Record from fields. A repeated name overwrites the earlier
// value and keeps its position.
func New(fields ...Field) Record {
	r := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		r.put(f.Name, f.Value)
	}
	return r
}

// F is shorthand for building a Field.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Set stores v under name. Other copies of r are not affected. Each call
// copies the record; build wide records with New.
func (r *Record) Set(name string, v Value) {
	fields := make([]Field, len(r.fields), len(r.fields)+1)
	copy(fields, r.fields)
	index := make(map[string]int, len(r.fields)+1)
	for k, i := range r.index {
		index[k] = i
	}
	r.fields, r.index = fields, index
	r.put(name, v)
}

// put writes in place; r must own its storage.
func (r *Record) put(name string, v Value) {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Keys returns field names in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// SortedKeys returns field names in lexicographic order.
func (r Record) SortedKeys() []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the fields in insertion order.
func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Range calls fn for each field in insertion order until fn returns false.
func (r Record) Range(fn func(name string, v Value) bool) {
	for _, f := range r.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// Map returns the record as a plain map of Go values.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value.Interface()
	}
	return m
}

// Equal reports whether both records hold the same names and values,
// regardless of field order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for _, f := range r.fields {
		ov, ok := o.Get(f.Name)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}
