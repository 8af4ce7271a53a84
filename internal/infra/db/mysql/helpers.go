package mysql

import (
	"database/sql"
	"encoding/json"
)

// toJSON marshals v for a JSON column; nil maps to SQL NULL. A typed nil
// pointer inside the interface marshals to "null", which must also become
// SQL NULL or read-back would materialize a zero value.
func toJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(b) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// fromJSON unmarshals a nullable JSON column into out; NULL leaves out untouched.
func fromJSON(ns sql.NullString, out any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), out)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
