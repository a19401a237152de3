package domain

// EntityKindWay is the entity kind of line features such as roads and paths.
const EntityKindWay = "way"

// Classification is the result of looking up a single coordinate.
type Classification struct {
	EntityKind string   `json:"entity_kind"`
	GroupKey   string   `json:"group_key"`
	Name       string   `json:"name,omitempty"`
	Surface    string   `json:"surface,omitempty"`
	Address    *Address `json:"address,omitempty"`
}

// IsWay reports whether the classified place is a line feature.
func (c *Classification) IsWay() bool {
	return c != nil && c.EntityKind == EntityKindWay
}

// Address is a structured postal address.
type Address struct {
	DisplayName  string `json:"display_name,omitempty"`
	Road         string `json:"road,omitempty"`
	Suburb       string `json:"suburb,omitempty"`
	Hamlet       string `json:"hamlet,omitempty"`
	Town         string `json:"town,omitempty"`
	City         string `json:"city,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	State        string `json:"state,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// Locality returns the most specific settlement name available.
func (a *Address) Locality() string {
	if a == nil {
		return ""
	}
	for _, s := range []string{a.Hamlet, a.Suburb, a.Town, a.City, a.Municipality} {
		if s != "" {
			return s
		}
	}
	return ""
}
