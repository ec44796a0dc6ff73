package city

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// Services and metadata types the store listens to.
const (
	ServiceStartup      = "StartupService"
	ServiceCityMap      = "CityMapService"
	ServiceHiddenReward = "HiddenRewardService"

	MethodGetData      = "getData"
	MethodGetEntities  = "getEntities"
	MethodGetCityMap   = "getCityMap"
	MethodUpdateEntity = "updateEntity"
	MethodGetOverview  = "getOverview"

	MetaCityEntities = "city_entities"
)

// Register installs the store's handlers on ic.
func (s *Store) Register(ic *interceptor.Interceptor) {
	startup := func(entry batch.Entry) error { return s.applyStartup(entry) }
	entities := func(entry batch.Entry) error { return s.replaceCityMap(entry, entry.ResponseData()) }
	update := func(entry batch.Entry) error { return s.mergeCityMap(entry) }

	ic.AddHandler(ServiceStartup, MethodGetData, response(startup))
	ic.AddWsHandler(ServiceStartup, MethodGetData, startup)

	ic.AddHandler(ServiceCityMap, MethodGetEntities, response(entities))
	ic.AddWsHandler(ServiceCityMap, MethodGetEntities, entities)

	ic.AddHandler(ServiceCityMap, MethodUpdateEntity, response(update))
	ic.AddWsHandler(ServiceCityMap, MethodUpdateEntity, update)

	ic.AddHandler(ServiceCityMap, MethodGetCityMap, response(s.applyCityMap))
	ic.AddHandler(ServiceHiddenReward, MethodGetOverview, response(s.applyIncidents))
	ic.AddHandler("", "", response(s.captureDefinitions))

	ic.AddMetaHandler(MetaCityEntities, func(ex *interceptor.Exchange, _ []byte) error {
		return s.LoadCatalog(ex.Body)
	})
}

func response(fn func(batch.Entry) error) interceptor.ResponseHandler {
	return func(entry batch.Entry, _ []batch.Entry) error {
		return fn(entry)
	}
}

func responseObject(entry batch.Entry) (map[string]any, bool) {
	m, ok := entry.ResponseData().(map[string]any)
	return m, ok
}

// applyStartup reads city_map.entities, city_map.unlocked_areas and
// user_data from StartupService.getData.
func (s *Store) applyStartup(entry batch.Entry) error {
	data, ok := responseObject(entry)
	if !ok {
		return errors.NewValidationError("responseData", entry.ResponseData(), "startup data is not an object")
	}

	if user, ok := data["user_data"].(map[string]any); ok {
		s.mu.Lock()
		s.user = user
		s.updatedAt = utc.Now()
		s.mu.Unlock()
		s.trigger(Change{Kind: ChangeUser, Source: entry.Name(), Count: 1, At: utc.Now()})
	}

	cityMap, ok := data["city_map"].(map[string]any)
	if !ok {
		return nil
	}
	if areas, ok := cityMap["unlocked_areas"].([]any); ok {
		s.setUnlockedAreas(entry.Name(), areas)
	}
	if list, ok := cityMap["entities"]; ok {
		return s.replaceCityMap(entry, list)
	}
	return nil
}

// applyCityMap handles CityMapService.getCityMap.
func (s *Store) applyCityMap(entry batch.Entry) error {
	data, ok := responseObject(entry)
	if !ok {
		return nil
	}
	if areas, ok := data["unlocked_areas"].([]any); ok {
		s.setUnlockedAreas(entry.Name(), areas)
	}
	if list, ok := data["entities"]; ok {
		return s.replaceCityMap(entry, list)
	}
	return nil
}

// replaceCityMap swaps the whole city map for list. Non-array input is
// ignored.
func (s *Store) replaceCityMap(entry batch.Entry, list any) error {
	items, ok := list.([]any)
	if !ok {
		return nil
	}
	next := indexByID(items)

	s.mu.Lock()
	s.cityMap = next
	s.updatedAt = utc.Now()
	s.mu.Unlock()

	s.logger.Debug().Str("source", entry.Name()).Int("entities", len(next)).Msg("City map replaced")
	s.trigger(Change{Kind: ChangeCityMap, Source: entry.Name(), Count: len(next), At: utc.Now()})
	return nil
}

// mergeCityMap applies a partial update: responseData is a list of changed
// entities, or an object holding one under "entities".
func (s *Store) mergeCityMap(entry batch.Entry) error {
	var items []any
	switch t := entry.ResponseData().(type) {
	case []any:
		items = t
	case map[string]any:
		items, _ = t["entities"].([]any)
	}
	updates := indexByID(items)
	if len(updates) == 0 {
		return nil
	}

	s.mu.Lock()
	for id, e := range updates {
		s.cityMap[id] = e
	}
	s.updatedAt = utc.Now()
	s.mu.Unlock()

	s.trigger(Change{Kind: ChangeCityMap, Source: entry.Name(), Count: len(updates), At: utc.Now()})
	return nil
}

func (s *Store) setUnlockedAreas(source string, areas []any) {
	s.mu.Lock()
	s.unlockedAreas = areas
	s.updatedAt = utc.Now()
	s.mu.Unlock()
	s.trigger(Change{Kind: ChangeUnlockedAreas, Source: source, Count: len(areas), At: utc.Now()})
}

// applyIncidents handles HiddenRewardService.getOverview.
func (s *Store) applyIncidents(entry batch.Entry) error {
	incidents := []any{}
	if data, ok := responseObject(entry); ok {
		if list, ok := data["hiddenRewards"].([]any); ok {
			incidents = list
		}
	}

	s.mu.Lock()
	s.incidents = incidents
	s.updatedAt = utc.Now()
	s.mu.Unlock()

	s.trigger(Change{Kind: ChangeIncidents, Source: entry.Name(), Count: len(incidents), At: utc.Now()})
	return nil
}

// captureDefinitions merges responseData.city_entities from any response
// into the building metadata. Arrays are keyed by id, falling back to
// asset_id; objects are merged as they are.
func (s *Store) captureDefinitions(entry batch.Entry) error {
	data, ok := responseObject(entry)
	if !ok {
		return nil
	}
	defs, ok := data["city_entities"]
	if !ok || defs == nil {
		return nil
	}

	added := 0
	s.mu.Lock()
	switch t := defs.(type) {
	case []any:
		for _, item := range t {
			def, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key := FormatID(def["id"])
			if key == "" {
				key = FormatID(def["asset_id"])
			}
			if key != "" {
				s.metadata[key] = def
				added++
			}
		}
	case map[string]any:
		for k, v := range t {
			s.metadata[k] = v
			added++
		}
	}
	s.updatedAt = utc.Now()
	s.mu.Unlock()

	if added == 0 {
		return nil
	}
	s.logger.Debug().Str("source", entry.Name()).Int("definitions", added).Msg("Building metadata captured")

	if s.metadataPath != "" {
		if err := s.SaveMetadata(s.metadataPath); err != nil {
			return err
		}
	}
	s.trigger(Change{Kind: ChangeMetadata, Source: entry.Name(), Count: added, At: utc.Now()})
	return nil
}

// LoadCatalog replaces the building catalog with a city_entities metadata
// document, a JSON array of definitions keyed by id.
func (s *Store) LoadCatalog(doc []byte) error {
	v, ok := batch.Parse(doc)
	if !ok {
		return errors.NewParseError("json", MetaCityEntities, "catalog document is not valid JSON", nil)
	}
	items, ok := v.([]any)
	if !ok {
		return errors.NewValidationError(MetaCityEntities, nil, "catalog document is not an array")
	}
	next := indexByID(items)

	s.mu.Lock()
	s.catalog = next
	s.updatedAt = utc.Now()
	s.mu.Unlock()

	s.logger.Info().Int("definitions", len(next)).Msg("Building catalog loaded")
	s.trigger(Change{Kind: ChangeCatalog, Source: MetaCityEntities, Count: len(next), At: utc.Now()})
	return nil
}

func indexByID(items []any) map[string]Entity {
	out := make(map[string]Entity, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e := Entity(obj)
		if id := e.ID(); id != "" {
			out[id] = e
		}
	}
	return out
}
