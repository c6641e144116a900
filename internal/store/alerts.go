package store

import (
	"marketsync/internal/action"
	"marketsync/internal/models"
)

func reduceAlerts(s AlertsState, a action.Action) AlertsState {
	switch act := a.(type) {
	case action.Requested:
		if act.Domain == action.DomainAlerts {
			s.Loading = true
			s.Err = ""
		}
	case action.Failed:
		if act.Domain == action.DomainAlerts {
			s.Loading = false
			s.Err = act.Message
		}
	case action.Settled:
		if act.Domain == action.DomainAlerts {
			s.Loading = false
			s.Err = ""
		}
	case action.AlertsLoaded:
		items := cloneAlerts(s.Items)
		for _, al := range act.Alerts {
			items[al.ID] = al
		}
		s.Items = items
		s.Loading = false
		s.Err = ""
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.AlertUpserted:
		s.Items = cloneAlerts(s.Items)
		s.Items[act.Alert.ID] = act.Alert
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.AlertRemoved:
		if _, ok := s.Items[act.ID]; !ok {
			return s
		}
		s.Items = cloneAlerts(s.Items)
		delete(s.Items, act.ID)
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	case action.AlertTriggered:
		al, ok := s.Items[act.ID]
		if !ok || al.Triggered {
			return s
		}
		al.Triggered = true
		at := act.At
		al.TriggeredAt = &at
		s.Items = cloneAlerts(s.Items)
		s.Items[act.ID] = al
		s.LastUpdated = laterOf(s.LastUpdated, act.At)
	}
	return s
}

func cloneAlerts(m map[string]models.Alert) map[string]models.Alert {
	out := make(map[string]models.Alert, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
