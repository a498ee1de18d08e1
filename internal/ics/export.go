package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"fitcal/internal/model"
)

const exportProductID = "-//fitcal//workouts//EN"

// ExportWorkouts renders finished workouts as a VCALENDAR so a phone
// calendar can subscribe to the training log. In-progress workouts are left
// out. stamp is used for DTSTAMP.
func ExportWorkouts(workouts []model.Workout, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(exportProductID)
	cal.SetXWRCalName("Workouts")

	for _, w := range workouts {
		if w.InProgress() {
			continue
		}
		ev := cal.AddEvent(w.ID + "@workouts.fitcal")
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(w.StartedAt.In(time.UTC))
		ev.SetEndAt(w.EndedAt.In(time.UTC))
		ev.SetSummary(w.Name)
		if desc := workoutDescription(w); desc != "" {
			ev.SetDescription(desc)
		}
	}

	return cal.Serialize()
}

// workoutDescription lists exercises as "Squat 3x5 @ 100kg", followed by
// the notes.
func workoutDescription(w model.Workout) string {
	lines := make([]string, 0, len(w.Exercises)+1)
	for _, ex := range w.Exercises {
		done := 0
		reps := 0
		var weight float64
		for _, s := range ex.Sets {
			if !s.Completed {
				continue
			}
			done++
			reps = s.Reps
			weight = s.WeightKg
		}
		if done == 0 {
			lines = append(lines, ex.Name)
			continue
		}
		line := fmt.Sprintf("%s %dx%d", ex.Name, done, reps)
		if weight > 0 {
			line += " @ " + strconv.FormatFloat(weight, 'f', -1, 64) + "kg"
		}
		lines = append(lines, line)
	}
	if w.Notes != "" {
		lines = append(lines, w.Notes)
	}
	return strings.Join(lines, "\n")
}
