package command

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/droverdev/drover/internal/transport"
)

// ErrInvalidDate is returned verbatim to the API caller when a scheduled
// reboot datetime cannot be parsed. Validation happens before any
// transport contact.
var ErrInvalidDate = errors.New("Invalid date")

// rebootLayout is the datetime format accepted for scheduled reboots.
const rebootLayout = "2006-01-02 15:04"

// displayLayout renders the parsed time back to the caller.
const displayLayout = "January 2, 2006 at 03:04 PM"

// ScheduledReboot is a one-shot reboot task built from a parsed datetime.
// TaskName is unique so the task can be cancelled idempotently later.
type ScheduledReboot struct {
	TaskName string
	When     time.Time
}

// Display formats the scheduled time for API responses.
func (s ScheduledReboot) Display() string {
	return s.When.Format(displayLayout)
}

// RebootLater parses a free-form datetime and builds the scheduled-task
// command. A parse failure yields ErrInvalidDate without building anything.
func RebootLater(datetime string) (ScheduledReboot, Command, error) {
	when, err := time.ParseInLocation(rebootLayout, datetime, time.Local)
	if err != nil {
		return ScheduledReboot{}, Command{}, ErrInvalidDate
	}

	sched := ScheduledReboot{
		TaskName: "SchedReboot_" + randomSuffix(),
		When:     when,
	}

	cmd := Command{
		Req: transport.Request{
			Func: "schedtask",
			SchedTaskPayload: map[string]any{
				"type":        "schedreboot",
				"deleteafter": true,
				"trigger":     "once",
				"name":        sched.TaskName,
				"year":        when.Year(),
				"month":       when.Month().String(),
				"day":         when.Day(),
				"hour":        when.Hour(),
				"min":         when.Minute(),
			},
		},
		WaitSecs: rebootSecs,
	}
	return sched, cmd, nil
}

func randomSuffix() string {
	b := make([]byte, 5)
	rand.Read(b)
	return hex.EncodeToString(b)
}
