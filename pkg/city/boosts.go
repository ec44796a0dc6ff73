package city

import (
	"math"
	"sort"
	"strings"
)

// AllAge is the component key shared by every era.
const AllAge = "AllAge"

// Boost categories, each a feature prefix of four boost keys.
var Categories = []string{"all", "battleground", "guild_expedition", "guild_raids"}

var boostSuffixes = []string{
	"att_boost_attacker",
	"def_boost_attacker",
	"att_boost_defender",
	"def_boost_defender",
}

// CategoryKeys returns the four boost keys of a category.
func CategoryKeys(category string) []string {
	keys := make([]string, 0, len(boostSuffixes))
	for _, suffix := range boostSuffixes {
		keys = append(keys, category+"-"+suffix)
	}
	return keys
}

// specialBoosts maps combined boost keys to the plain keys they stand for.
var specialBoosts = map[string][]string{
	"fierce_resistance":                {"all-att_boost_defender", "all-def_boost_defender"},
	"advanced_tactics":                 {"all-att_boost_attacker", "all-def_boost_attacker", "all-att_boost_defender", "all-def_boost_defender"},
	"military_boost":                   {"all-att_boost_attacker", "all-def_boost_attacker"},
	"all-att_def_boost_defender":       {"all-att_boost_defender", "all-def_boost_defender"},
	"all-att_def_boost_attacker":       {"all-att_boost_attacker", "all-def_boost_attacker"},
	"all-att_def_boost_attacker_defender": {
		"all-att_boost_attacker", "all-def_boost_attacker", "all-att_boost_defender", "all-def_boost_defender",
	},
}

func init() {
	for _, feature := range []string{"battleground", "guild_expedition", "guild_raids"} {
		specialBoosts[feature+"-att_def_boost_defender"] = []string{
			feature + "-att_boost_defender", feature + "-def_boost_defender",
		}
		specialBoosts[feature+"-att_def_boost_attacker"] = []string{
			feature + "-att_boost_attacker", feature + "-def_boost_attacker",
		}
		specialBoosts[feature+"-att_def_boost_attacker_defender"] = CategoryKeys(feature)
	}
}

// AllowedBoost reports whether key is a plain or combined boost key that
// is tracked.
func AllowedBoost(key string) bool {
	if _, ok := specialBoosts[key]; ok {
		return true
	}
	for _, c := range Categories {
		if strings.HasPrefix(key, c+"-") {
			suffix := strings.TrimPrefix(key, c+"-")
			for _, s := range boostSuffixes {
				if s == suffix {
					return true
				}
			}
		}
	}
	return false
}

// ExpandSpecialBoosts replaces combined keys by the plain keys they cover,
// summing values that land on the same key.
func ExpandSpecialBoosts(boosts map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(boosts))
	for key, value := range boosts {
		if targets, ok := specialBoosts[key]; ok {
			for _, t := range targets {
				out[t] += value
			}
			continue
		}
		out[key] += value
	}
	return out
}

// TownHallEra returns the era encoded in the town hall's cityentity_id
// (building id 1), such as "BronzeAge" for "H_BronzeAge_Townhall". It
// falls back to AllAge.
func TownHallEra(cityMap map[string]Entity) string {
	townHall, ok := cityMap["1"]
	if !ok {
		return AllAge
	}
	parts := strings.Split(townHall.EntityID(), "_")
	if len(parts) > 1 {
		return parts[1]
	}
	return AllAge
}

// ExtractBoosts returns the boosts a building grants in era. Sources are
// tried in order and the first that yields any tracked boost wins: the
// era's component, the AllAge component, then the placed building's own
// bonus.
func ExtractBoosts(definition, placed Entity, era string) map[string]float64 {
	components, _ := definition["components"].(map[string]any)

	for _, source := range []string{era, AllAge} {
		if boosts := componentBoosts(components, source); len(boosts) > 0 {
			return ExpandSpecialBoosts(boosts)
		}
	}

	if bonus, ok := placed["bonus"].(map[string]any); ok {
		key, _ := bonus["type"].(string)
		value, isNum := bonus["value"].(float64)
		if AllowedBoost(key) && isNum {
			return ExpandSpecialBoosts(map[string]float64{key: value})
		}
	}
	return map[string]float64{}
}

func componentBoosts(components map[string]any, era string) map[string]float64 {
	comp, _ := components[era].(map[string]any)
	outer, _ := comp["boosts"].(map[string]any)
	list, _ := outer["boosts"].([]any)

	boosts := make(map[string]float64)
	for _, item := range list {
		b, ok := item.(map[string]any)
		if !ok {
			continue
		}
		feature, _ := b["targetedFeature"].(string)
		if feature == "" {
			feature = "all"
		}
		kind, _ := b["type"].(string)
		key := feature + "-" + kind
		if value, ok := b["value"].(float64); ok && AllowedBoost(key) {
			boosts[key] += value
		}
	}
	return boosts
}

// ExtractSize returns the footprint of a definition: explicit width and
// length, else the first component placement size, else 1x1.
func ExtractSize(definition Entity) (width, length int) {
	w, okW := definition["width"].(float64)
	l, okL := definition["length"].(float64)
	if okW && okL {
		return int(w), int(l)
	}

	components, _ := definition["components"].(map[string]any)
	eras := make([]string, 0, len(components))
	for era := range components {
		eras = append(eras, era)
	}
	sort.Strings(eras)
	for _, era := range eras {
		comp, _ := components[era].(map[string]any)
		placement, _ := comp["placement"].(map[string]any)
		size, _ := placement["size"].(map[string]any)
		x, okX := size["x"].(float64)
		y, okY := size["y"].(float64)
		if okX && okY {
			return int(x), int(y)
		}
	}
	return 1, 1
}

// StreetLevel returns requirements.street_connection_level, or 0.
func StreetLevel(definition Entity) int {
	req, _ := definition["requirements"].(map[string]any)
	level, _ := req["street_connection_level"].(float64)
	return int(level)
}

// StreetText names a street level.
func StreetText(level int) string {
	switch level {
	case 1:
		return "Single"
	case 2:
		return "Double"
	default:
		return "No"
	}
}

// BuildingBoosts is one row of the boost report: a building kind with the
// number placed and the boosts of a single instance.
type BuildingBoosts struct {
	Name        string             `json:"name" yaml:"name"`
	Era         string             `json:"era" yaml:"era"`
	Count       int                `json:"count" yaml:"count"`
	Size        int                `json:"size" yaml:"size"`
	StreetLevel int                `json:"street_level" yaml:"street_level"`
	Boosts      map[string]float64 `json:"boosts" yaml:"boosts"`
}

// Efficiency sums the category's boosts and divides by size plus street
// level, rounded to two decimals.
func (b BuildingBoosts) Efficiency(category string) float64 {
	sum := 0.0
	for _, key := range CategoryKeys(category) {
		sum += b.Boosts[key]
	}
	area := b.Size + b.StreetLevel
	if area <= 0 {
		return 0
	}
	return math.Round(sum/float64(area)*100) / 100
}

// HasCategory reports whether any boost of the category is non-zero.
func (b BuildingBoosts) HasCategory(category string) bool {
	for _, key := range CategoryKeys(category) {
		if b.Boosts[key] != 0 {
			return true
		}
	}
	return false
}

// Boosts builds the boost report for the current city. Buildings without a
// catalog entry are skipped. Identical buildings are grouped; boosts stay
// per instance.
func (s *Store) Boosts() []BuildingBoosts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	era := TownHallEra(s.cityMap)
	grouped := make(map[string]*BuildingBoosts)
	var order []string

	for _, placed := range sortedEntities(s.cityMap) {
		definition, ok := s.catalog[placed.EntityID()]
		if !ok {
			continue
		}
		name := definition.Name()
		if name == "" {
			name = placed.EntityID()
		}
		key := name + "|" + era
		if g, ok := grouped[key]; ok {
			g.Count++
			continue
		}
		w, l := ExtractSize(definition)
		grouped[key] = &BuildingBoosts{
			Name:        name,
			Era:         era,
			Count:       1,
			Size:        w * l,
			StreetLevel: StreetLevel(definition),
			Boosts:      ExtractBoosts(definition, placed, era),
		}
		order = append(order, key)
	}

	out := make([]BuildingBoosts, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out
}

// RankByCategory returns the rows with a non-zero boost in category,
// most efficient first.
func RankByCategory(rows []BuildingBoosts, category string) []BuildingBoosts {
	out := make([]BuildingBoosts, 0, len(rows))
	for _, r := range rows {
		if r.HasCategory(category) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Efficiency(category) > out[j].Efficiency(category)
	})
	return out
}
