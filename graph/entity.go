package graph

// Entity types that never serve as the bridging node of a two-entity chain.
// They are either generic leaves or start domains, which make poor shared
// concepts for comparison questions.
const (
	TypeText             = "text"
	TypeID               = "id"
	TypeThing            = "thing"
	TypeImage            = "image"
	TypeTelevisionSeries = "television_series"
	TypeLiteraryWork     = "literary_work"
	TypeMovie            = "movie"
	TypeURL              = "url"
	TypeRating           = "rating"
)

// DefaultExclusions returns a fresh copy of the excluded bridging types.
func DefaultExclusions() map[string]bool {
	return map[string]bool{
		TypeText:             true,
		TypeID:               true,
		TypeThing:            true,
		TypeImage:            true,
		TypeTelevisionSeries: true,
		TypeLiteraryWork:     true,
		TypeMovie:            true,
		TypeURL:              true,
		TypeRating:           true,
	}
}

// ExclusionSet builds an exclusion set from a list of type names. A nil
// list yields DefaultExclusions.
func ExclusionSet(types []string) map[string]bool {
	if types == nil {
		return DefaultExclusions()
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
