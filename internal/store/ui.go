package store

import (
	"marketsync/internal/action"
	"marketsync/internal/models"
)

func reduceUI(s UIState, a action.Action) UIState {
	switch act := a.(type) {
	case action.NotificationAdded:
		max := s.MaxNotifications
		if max <= 0 {
			max = DefaultMaxNotifications
		}
		notifications := make([]models.Notification, 0, len(s.Notifications)+1)
		notifications = append(notifications, s.Notifications...)
		notifications = append(notifications, act.Notification)
		// Bounded retention: keep only the most recent entries.
		if len(notifications) > max {
			notifications = notifications[len(notifications)-max:]
		}
		s.Notifications = notifications
	case action.NotificationDismissed:
		idx := -1
		for i, n := range s.Notifications {
			if n.ID == act.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s
		}
		notifications := make([]models.Notification, 0, len(s.Notifications)-1)
		notifications = append(notifications, s.Notifications[:idx]...)
		notifications = append(notifications, s.Notifications[idx+1:]...)
		s.Notifications = notifications
	case action.ConnectionChanged:
		s.Connection = act.State
	}
	return s
}
