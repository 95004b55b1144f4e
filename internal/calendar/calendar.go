// Package calendar builds iCalendar invitation payloads from resolved
// event metadata.
package calendar

import (
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// dateLayout is the only accepted event date format.
const dateLayout = "2006-01-02 15:04:05"

// defaultDuration is assumed when the metadata specifies no end time.
const defaultDuration = time.Hour

// EventDetails holds the resolved metadata needed for an invitation.
type EventDetails struct {
	Name     string
	Date     string
	Location string
	Timezone string
}

// DateError indicates an event date that does not match the expected
// YYYY-MM-DD HH:MM:SS format.
type DateError struct {
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("event date %q does not match format %q", e.Value, dateLayout)
}

// TimezoneError indicates a timezone name unknown to the timezone
// database.
type TimezoneError struct {
	Name string
}

func (e *TimezoneError) Error() string {
	return fmt.Sprintf("unknown timezone %q", e.Name)
}

// IsDateError reports whether err (or any error in its chain) is a DateError.
func IsDateError(err error) bool {
	var dateErr *DateError
	return errors.As(err, &dateErr)
}

// IsTimezoneError reports whether err (or any error in its chain) is a
// TimezoneError.
func IsTimezoneError(err error) bool {
	var tzErr *TimezoneError
	return errors.As(err, &tzErr)
}

// DetailsFromMetadata maps resolved template metadata onto EventDetails.
func DetailsFromMetadata(metadata map[string]string) EventDetails {
	return EventDetails{
		Name:     metadata["event_name"],
		Date:     metadata["event_date"],
		Location: metadata["event_location"],
		Timezone: metadata["timezone"],
	}
}

// Build produces a serialized VCALENDAR invitation (METHOD:REQUEST)
// for the event. The date is interpreted in the event timezone and
// written in UTC; the event runs for one hour.
func Build(details EventDetails) (string, error) {
	name := details.Name
	if name == "" {
		name = "Event"
	}
	location := details.Location
	if location == "" {
		location = "TBD"
	}
	tzName := details.Timezone
	if tzName == "" {
		tzName = "UTC"
	}

	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return "", &TimezoneError{Name: tzName}
	}

	start, err := time.ParseInLocation(dateLayout, details.Date, tz)
	if err != nil {
		return "", &DateError{Value: details.Date}
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//draftsend//draftsend//EN")

	now := time.Now().UTC()
	event := cal.AddEvent(uuid.NewString())
	event.SetCreatedTime(now)
	event.SetDtStampTime(now)
	event.SetStartAt(start)
	event.SetEndAt(start.Add(defaultDuration))
	event.SetSummary(name)
	event.SetLocation(location)

	return cal.Serialize(), nil
}
