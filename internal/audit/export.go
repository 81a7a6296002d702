package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"
)

// WriteCSV encodes timeline rows as a CSV document.
func WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"at", "actor", "actor_name", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			encoded, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, fmt.Errorf("encode meta: %w", err)
			}
			meta = string(encoded)
		}
		record := []string{
			row.At.UTC().Format(time.RFC3339),
			row.Actor,
			row.ActorName,
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
