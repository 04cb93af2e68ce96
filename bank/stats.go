package bank

import "sort"

// Count is a named tally used in breakdowns.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarises the contents of a Bank.
type Stats struct {
	Relations             int     `json:"relations"`
	PredicateLabels       int     `json:"predicate_labels"`
	AvgLabelsPerPredicate float64 `json:"avg_labels_per_predicate"`
	ByKey                 []Count `json:"by_key"`
	ByPOS                 []Count `json:"by_pos"`
	BySubject             []Count `json:"by_subject"`

	Entities           int     `json:"entities"`
	EntityLabels       int     `json:"entity_labels"`
	AvgLabelsPerEntity float64 `json:"avg_labels_per_entity"`
}

// Stats computes relation and entity counts. Breakdowns are sorted by
// descending count, then name.
func (b *Bank) Stats() Stats {
	var st Stats

	relations := make(map[string]bool)
	predLabels := make(map[string]bool)
	byKey := make(map[string]int)
	byPOS := make(map[string]int)
	bySubject := make(map[string]int)
	var predCount, predLabelTotal int

	for _, key := range b.keys {
		for _, p := range b.predicates[key] {
			relations[p.ID()] = true
			for _, l := range p.Labels {
				predLabels[l] = true
			}
			predCount++
			predLabelTotal += len(p.Labels)
			byKey[string(key)]++
			bySubject[key.Subject()]++
			for tag := range p.POS {
				byPOS[tag]++
			}
		}
	}
	st.Relations = len(relations)
	st.PredicateLabels = len(predLabels)
	if predCount > 0 {
		st.AvgLabelsPerPredicate = float64(predLabelTotal) / float64(predCount)
	}
	st.ByKey = sortedCounts(byKey)
	st.ByPOS = sortedCounts(byPOS)
	st.BySubject = sortedCounts(bySubject)

	entities := make(map[string]bool)
	entLabels := make(map[string]bool)
	var entCount, entLabelTotal int
	for _, e := range b.Entities() {
		entities[e.ID()] = true
		for _, l := range e.Labels {
			entLabels[l] = true
		}
		entCount++
		entLabelTotal += len(e.Labels)
	}
	st.Entities = len(entities)
	st.EntityLabels = len(entLabels)
	if entCount > 0 {
		st.AvgLabelsPerEntity = float64(entLabelTotal) / float64(entCount)
	}
	return st
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
