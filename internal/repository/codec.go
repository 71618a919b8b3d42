package repository

import (
	"encoding/json"
	"time"

	"github.com/partnerdesk/partnerdesk/internal/datastore"
)

// Helpers for reading JSONB-shaped documents, where numbers arrive as
// float64 and times as RFC3339 strings or time.Time.

func docString(doc datastore.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docFloat(doc datastore.Document, key string) float64 {
	switch n := doc[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func docInt(doc datastore.Document, key string) int {
	return int(docFloat(doc, key))
}

func docRaw(doc datastore.Document, key string) json.RawMessage {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func docTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	}
	return time.Time{}
}
