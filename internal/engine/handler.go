package engine

import (
	"context"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/dispatch"
	"github.com/roach88/slotguard/internal/notify"
)

// Handle applies req to the store and broadcasts committed changes. It is
// called directly by the synchronous methods and by dispatcher workers.
// Events in req must already be validated.
func (s *Scheduler) Handle(_ context.Context, req dispatch.Request) dispatch.Reply {
	switch req.Kind {
	case dispatch.OpAdd:
		var msg notify.Message
		ok, res := s.store.AddFunc(req.Event, func(e calendar.Event) {
			msg = s.stamp(notify.KindAdded, e, req.RequestID)
		})
		if ok {
			s.notifier.Broadcast(msg)
		}
		s.logger.Debug("add",
			"request_id", req.RequestID,
			"event", req.Event.ID,
			"owner", req.Event.Owner,
			"accepted", ok,
			"conflicts", res.Total)
		return dispatch.Reply{Accepted: ok, Conflict: res}

	case dispatch.OpRemove:
		var msg notify.Message
		_, ok := s.store.TakeFunc(req.ID, func(e calendar.Event) {
			msg = s.stamp(notify.KindRemoved, e, req.RequestID)
		})
		if ok {
			s.notifier.Broadcast(msg)
		}
		s.logger.Debug("remove", "request_id", req.RequestID, "event", req.ID, "found", ok)
		return dispatch.Reply{Found: ok}

	case dispatch.OpReplace:
		var msg notify.Message
		removed, ok, res := s.store.ReplaceFunc(req.Event, func(e calendar.Event, added bool) {
			kind := notify.KindRemoved
			if added {
				kind = notify.KindReplaced
			}
			msg = s.stamp(kind, e, req.RequestID)
		})
		switch {
		case ok:
			s.notifier.Broadcast(msg)
		case res.HasConflict:
			// The remove half committed before the add was rejected.
			s.notifier.Broadcast(msg)
			s.logger.Warn("replace rejected after remove; event dropped",
				"request_id", req.RequestID,
				"event", removed.ID,
				"owner", removed.Owner,
				"conflicts", res.Total)
		}
		return dispatch.Reply{Accepted: ok, Found: ok || res.HasConflict, Conflict: res}

	case dispatch.OpQuery:
		return dispatch.Reply{Events: s.store.Query(req.Owner)}

	case dispatch.OpQueryAll:
		return dispatch.Reply{Events: s.store.QueryAll()}

	case dispatch.OpAddBatch:
		var msgs []notify.Message
		results := s.store.AddBatchFunc(req.Events, func(e calendar.Event) {
			msgs = append(msgs, s.stamp(notify.KindBatch, e, req.RequestID))
		})
		for _, msg := range msgs {
			s.notifier.Broadcast(msg)
		}
		s.logger.Debug("batch",
			"request_id", req.RequestID,
			"size", len(req.Events),
			"accepted", len(msgs))
		return dispatch.Reply{Batch: results}

	default:
		s.logger.Warn("unknown request kind", "kind", req.Kind.String(), "request_id", req.RequestID)
		return dispatch.Reply{}
	}
}

// stamp builds the notification for a committed change. The store calls
// it under its write lock, so seq order is commit order.
func (s *Scheduler) stamp(kind notify.Kind, e calendar.Event, requestID string) notify.Message {
	return notify.Message{
		Seq:         s.clock.Next(),
		Kind:        kind,
		EventID:     e.ID,
		Owner:       e.Owner,
		Fingerprint: calendar.Fingerprint(e),
		RequestID:   requestID,
	}
}
