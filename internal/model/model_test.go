package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcal/internal/dateutil"
)

func sampleWorkout() Workout {
	return Workout{
		ID:        "w1",
		Name:      "Push day",
		Notes:     "felt strong",
		StartedAt: 1_717_600_000_000,
		EndedAt:   1_717_600_000_000 + 45*dateutil.Minute,
		Exercises: []Exercise{
			{Name: "Bench press", RestSeconds: 90, Sets: []Set{
				{Reps: 5, WeightKg: 80, Completed: true},
				{Reps: 5, WeightKg: 80, Completed: false},
			}},
			{Name: "Dips", Sets: []Set{{Reps: 10, WeightKg: 0, Completed: true}}},
		},
	}
}

func TestWorkoutMetrics(t *testing.T) {
	w := sampleWorkout()

	assert.Equal(t, 45*dateutil.Minute, w.Duration())
	assert.InDelta(t, 400.0, w.Volume(), 0.0001)
	assert.Equal(t, 2, w.CompletedSets())
	assert.False(t, w.InProgress())

	w.EndedAt = 0
	assert.True(t, w.InProgress())
	assert.Zero(t, w.Duration())
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleWorkout().Validate())

	tests := []struct {
		name   string
		mutate func(*Workout)
	}{
		{"missing name", func(w *Workout) { w.Name = "  " }},
		{"missing start", func(w *Workout) { w.StartedAt = 0 }},
		{"ends before start", func(w *Workout) { w.EndedAt = w.StartedAt - 1 }},
		{"unnamed exercise", func(w *Workout) { w.Exercises[1].Name = "" }},
		{"negative reps", func(w *Workout) { w.Exercises[0].Sets[0].Reps = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sampleWorkout()
			tt.mutate(&w)
			assert.ErrorIs(t, w.Validate(), ErrInvalidWorkout)
		})
	}
}

func TestRepeatWorkout(t *testing.T) {
	src := sampleWorkout()
	now := src.EndedAt + dateutil.Day

	rep := RepeatWorkout(src, now)

	assert.NotEmpty(t, rep.ID)
	assert.NotEqual(t, src.ID, rep.ID)
	assert.Equal(t, src.Name, rep.Name)
	assert.Equal(t, now, rep.StartedAt)
	assert.True(t, rep.InProgress())
	require.Len(t, rep.Exercises, 2)
	assert.Equal(t, 90, rep.Exercises[0].RestSeconds)
	assert.Zero(t, rep.CompletedSets())
	assert.Equal(t, 80.0, rep.Exercises[0].Sets[1].WeightKg)

	// The source must not share set slices with the copy.
	rep.Exercises[0].Sets[0].Reps = 99
	assert.Equal(t, 5, src.Exercises[0].Sets[0].Reps)
}
