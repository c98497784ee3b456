package portal

// Field is a single header/value pair from the "User properties" table.
type Field struct {
	Key   string
	Value string
}

// Record is everything the portal shows about one user.
type Record struct {
	UserID string
	Fields []Field
}

// Get returns the value of the field named `key`.
func (r Record) Get(key string) (string, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Result is the outcome of fetching one user id, Record is zero when Err is set.
type Result struct {
	UserID string
	Record Record
	Err    error
}

// setField overwrites the value of an existing key in place, new keys are
// appended.
func setField(fields []Field, key, value string) []Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, Field{Key: key, Value: value})
}
