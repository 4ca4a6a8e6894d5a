package calfile

import (
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/roach88/slotguard/internal/calendar"
)

const (
	// uidSuffix marks UIDs written by ExportICS.
	uidSuffix = "@slotguard"

	// propOwner carries the event owner through ICS round trips.
	propOwner ical.ComponentProperty = "X-SLOTGUARD-OWNER"

	productID = "-//slotguard//calendar export//EN"
)

// ParseICS reads every VEVENT in r. name is used in error messages.
//
// UIDs of the form "<n>@slotguard" or plain integers keep n as the event id;
// other UIDs are hashed. The owner comes from X-SLOTGUARD-OWNER, then
// ORGANIZER, then defaultOwner. RRULE only sets Recurring.
func ParseICS(name string, r io.Reader, defaultOwner string) ([]calendar.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var events []calendar.Event
	for _, ve := range cal.Events() {
		e, err := fromVEvent(ve, defaultOwner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func fromVEvent(ve *ical.VEvent, defaultOwner string) (calendar.Event, error) {
	var e calendar.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return e, fmt.Errorf("VEVENT without UID")
	}
	uid := uidProp.Value
	e.ID = idFromUID(uid)

	start, err := ve.GetStartAt()
	if err != nil {
		return e, fmt.Errorf("event %s: DTSTART: %w", uid, err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return e, fmt.Errorf("event %s: DTEND: %w", uid, err)
	}
	e.Start = start.UnixMilli()
	e.End = end.UnixMilli()

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		e.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		e.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyPriority); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			e.Priority = n
		}
	}
	e.Recurring = ve.GetProperty(ical.ComponentPropertyRrule) != nil

	switch {
	case ve.GetProperty(propOwner) != nil && ve.GetProperty(propOwner).Value != "":
		e.Owner = ve.GetProperty(propOwner).Value
	case ve.GetProperty(ical.ComponentPropertyOrganizer) != nil:
		e.Owner = organizerName(ve.GetProperty(ical.ComponentPropertyOrganizer).Value)
	}
	if e.Owner == "" {
		e.Owner = defaultOwner
	}

	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("event %s: %w", uid, err)
	}
	return e, nil
}

// idFromUID keeps numeric ids and hashes everything else into a positive
// int64.
func idFromUID(uid string) int64 {
	if n, err := strconv.ParseInt(strings.TrimSuffix(uid, uidSuffix), 10, 64); err == nil {
		return n
	}
	h := fnv.New64a()
	h.Write([]byte(uid))
	return int64(h.Sum64() & (1<<63 - 1))
}

func organizerName(v string) string {
	if len(v) >= len("mailto:") && strings.EqualFold(v[:len("mailto:")], "mailto:") {
		return v[len("mailto:"):]
	}
	return v
}

// ExportICS writes events as an iCalendar document. stamp fills DTSTAMP.
func ExportICS(w io.Writer, events []calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		ve := cal.AddEvent(strconv.FormatInt(e.ID, 10) + uidSuffix)
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(e.StartTime())
		ve.SetEndAt(e.EndTime())
		if e.Title != "" {
			ve.SetSummary(e.Title)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Priority != 0 {
			ve.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(e.Priority))
		}
		ve.SetProperty(propOwner, e.Owner)
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write ics: %w", err)
	}
	return nil
}
