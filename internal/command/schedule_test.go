package command

import (
	"errors"
	"strings"
	"testing"
)

func TestRebootLater(t *testing.T) {
	sched, cmd, err := RebootLater("2025-08-29 18:41")
	if err != nil {
		t.Fatalf("RebootLater: %v", err)
	}

	if !strings.HasPrefix(sched.TaskName, "SchedReboot_") {
		t.Errorf("TaskName = %q, want SchedReboot_ prefix", sched.TaskName)
	}
	if got := sched.Display(); got != "August 29, 2025 at 06:41 PM" {
		t.Errorf("Display() = %q", got)
	}

	p := cmd.Req.SchedTaskPayload
	if cmd.Req.Func != "schedtask" {
		t.Errorf("Func = %q, want schedtask", cmd.Req.Func)
	}
	if p["type"] != "schedreboot" {
		t.Errorf("type = %v", p["type"])
	}
	if p["deleteafter"] != true {
		t.Errorf("deleteafter = %v, want true", p["deleteafter"])
	}
	if p["trigger"] != "once" {
		t.Errorf("trigger = %v, want once", p["trigger"])
	}
	if p["name"] != sched.TaskName {
		t.Errorf("name = %v, want %q", p["name"], sched.TaskName)
	}
	if p["year"] != 2025 || p["day"] != 29 || p["hour"] != 18 || p["min"] != 41 {
		t.Errorf("date fields = %v/%v %v:%v", p["year"], p["day"], p["hour"], p["min"])
	}
	// Month travels as its English name.
	if p["month"] != "August" {
		t.Errorf("month = %v, want August", p["month"])
	}
}

func TestRebootLaterInvalidDate(t *testing.T) {
	for _, bad := range []string{"", "not a date", "2025-13-01 00:00", "08/29/2025 6:41 PM"} {
		_, _, err := RebootLater(bad)
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("RebootLater(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestRebootLaterUniqueTaskNames(t *testing.T) {
	a, _, _ := RebootLater("2025-08-29 18:41")
	b, _, _ := RebootLater("2025-08-29 18:41")
	if a.TaskName == b.TaskName {
		t.Errorf("task names collide: %q", a.TaskName)
	}
}
