package knowledge

// CloneRecord returns an independent copy of a record. Callers that hold
// records across set mutations must clone first: Set accessors return
// pointers into its backing slices, which removal shifts in place.
func CloneRecord(rec Record) Record {
	switch r := rec.(type) {
	case *Decision:
		c := *r
		return &c
	case *Pattern:
		c := *r
		return &c
	case *Task:
		c := *r
		if r.CompletedAt != nil {
			t := *r.CompletedAt
			c.CompletedAt = &t
		}
		return &c
	case *Insight:
		c := *r
		return &c
	default:
		return rec
	}
}

// CloneRecords clones every record in a slice.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = CloneRecord(rec)
	}
	return out
}

// MergeSession reconciles a re-captured session with its prior records
// using the overwrite-by-key policy: the result is keyed by each record's
// merge key (topic for decisions, name for patterns, normalized title for
// tasks, normalized content for insights), seeded with prior records, then
// next applied over it with later entries winning. The returned set entirely
// replaces the session's previously persisted records.
//
// Order is deterministic: first appearance of a key fixes its position;
// overwriting a key replaces the value in place.
func MergeSession(prior, next []Record) []Record {
	type slot struct {
		kind Type
		key  string
	}

	index := make(map[slot]int)
	var merged []Record

	apply := func(records []Record) {
		for _, rec := range records {
			s := slot{kind: rec.Kind(), key: rec.MergeKey()}
			if pos, ok := index[s]; ok {
				merged[pos] = rec
				continue
			}
			index[s] = len(merged)
			merged = append(merged, rec)
		}
	}

	apply(prior)
	apply(next)

	return merged
}
