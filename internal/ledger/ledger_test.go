package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"facemark/internal/store"
)

// failingStore accepts loads but refuses writes, to exercise rollback.
type failingStore struct {
	*store.Memory
	fail bool
}

func (f *failingStore) Save(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Save(ctx, key, value)
}

// emptyLedger opens a ledger over a snapshot with no records, pinned to
// the given time.
func emptyLedger(t *testing.T, now time.Time) (*Ledger, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Save(ctx, Key, []byte("[]")))
	l, err := Open(ctx, st)
	require.NoError(t, err)
	l.SetClock(func() time.Time { return now })
	return l, st
}

func candidate(studentID string, date time.Time, status Status) Candidate {
	return Candidate{
		StudentID:          studentID,
		StudentName:        "Test Student",
		RollNumber:         "CS2021001",
		Department:         "Computer Science",
		Date:               date,
		Time:               date.Format("03:04 PM"),
		Status:             status,
		VerificationMethod: MethodFace,
	}
}

func TestMarkRejectsSecondSameDay(t *testing.T) {
	day1 := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, day1)
	ctx := context.Background()

	first, err := l.Mark(ctx, candidate("s1", day1, StatusPresent))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, 1, l.Len())

	// Same student, same calendar day, different status: rejected.
	_, err = l.Mark(ctx, candidate("s1", day1.Add(2*time.Hour), StatusLate))
	require.ErrorIs(t, err, ErrDuplicateAttendance)
	require.Equal(t, 1, l.Len())

	// Next day succeeds.
	day2 := day1.AddDate(0, 0, 1)
	second, err := l.Mark(ctx, candidate("s1", day2, StatusPresent))
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())

	records := l.RecordsForStudent("s1")
	require.Len(t, records, 2)
	require.Equal(t, first.ID, records[0].ID, "creation order preserved")
	require.Equal(t, second.ID, records[1].ID)
}

func TestMarkDifferentStudentsSameDay(t *testing.T) {
	day := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, day)
	ctx := context.Background()

	_, err := l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.NoError(t, err)
	_, err = l.Mark(ctx, candidate("s2", day, StatusPresent))
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
}

func TestDatePartitioning(t *testing.T) {
	lateNight := time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)
	earlyMorning := time.Date(2024, 3, 6, 0, 1, 0, 0, time.UTC)
	l, _ := emptyLedger(t, lateNight)
	ctx := context.Background()

	// Two minutes apart but across midnight: different partitions, so
	// the same student can hold both.
	_, err := l.Mark(ctx, candidate("s1", lateNight, StatusPresent))
	require.NoError(t, err)
	_, err = l.Mark(ctx, candidate("s1", earlyMorning, StatusPresent))
	require.NoError(t, err)

	require.Len(t, l.RecordsForDate(lateNight), 1)
	require.Len(t, l.RecordsForDate(earlyMorning), 1)
}

func TestRecordsForDateIgnoresTimeOfDay(t *testing.T) {
	day := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	l, _ := emptyLedger(t, day)
	ctx := context.Background()

	_, err := l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.NoError(t, err)

	sameDayEvening := time.Date(2024, 3, 5, 21, 0, 0, 0, time.UTC)
	require.Len(t, l.RecordsForDate(sameDayEvening), 1)
}

func TestTodayRecordsUsesClock(t *testing.T) {
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, day)
	ctx := context.Background()

	_, err := l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.NoError(t, err)
	_, err = l.Mark(ctx, candidate("s2", day.AddDate(0, 0, -1), StatusPresent))
	require.NoError(t, err)

	today := l.TodayRecords()
	require.Len(t, today, 1)
	require.Equal(t, "s1", today[0].StudentID)
}

func TestComputeStatsZeroStudents(t *testing.T) {
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, day)
	ctx := context.Background()

	_, err := l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.NoError(t, err)

	stats := l.ComputeStats(0)
	require.Equal(t, 0, stats.TotalStudents)
	require.Equal(t, 1, stats.PresentToday)
	// absentToday is total - present, deliberately not clamped.
	require.Equal(t, -1, stats.AbsentToday)
	// No division by zero: average falls back to 0.
	require.Equal(t, 0, stats.AverageAttendance)
}

func TestComputeStatsCountsLateAsPresent(t *testing.T) {
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, day)
	ctx := context.Background()

	_, err := l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.NoError(t, err)
	_, err = l.Mark(ctx, candidate("s2", day, StatusLate))
	require.NoError(t, err)
	_, err = l.Mark(ctx, candidate("s3", day, StatusAbsent))
	require.NoError(t, err)

	stats := l.ComputeStats(10)
	require.Equal(t, 2, stats.PresentToday)
	require.Equal(t, 8, stats.AbsentToday)
}

func TestComputeStatsAverageDensity(t *testing.T) {
	now := time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, now)
	ctx := context.Background()

	// 15 marks in the window for one student over 30 possible days:
	// round(100 * 15 / (1*30)) = 50.
	for i := 0; i < 15; i++ {
		_, err := l.Mark(ctx, candidate("s1", now.AddDate(0, 0, -i), StatusPresent))
		require.NoError(t, err)
	}
	// One mark outside the window is excluded.
	_, err := l.Mark(ctx, candidate("s1", now.AddDate(0, 0, -31), StatusPresent))
	require.NoError(t, err)

	stats := l.ComputeStats(1)
	require.Equal(t, 50, stats.AverageAttendance)
}

func TestComputeStatsAverageClampedAt100(t *testing.T) {
	now := time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)
	l, _ := emptyLedger(t, now)
	ctx := context.Background()

	// Two students marking daily against a totalStudents of 1 pushes the
	// density past 100; it is capped, not corrected.
	for i := 0; i < 30; i++ {
		day := now.AddDate(0, 0, -i)
		_, err := l.Mark(ctx, candidate("s1", day, StatusPresent))
		require.NoError(t, err)
		_, err = l.Mark(ctx, candidate("s2", day, StatusPresent))
		require.NoError(t, err)
	}

	stats := l.ComputeStats(1)
	require.Equal(t, 100, stats.AverageAttendance)
}

func TestPersistenceRoundTrip(t *testing.T) {
	day := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	l, st := emptyLedger(t, day)
	ctx := context.Background()

	want, err := l.Mark(ctx, candidate("s1", day, StatusLate))
	require.NoError(t, err)

	reloaded, err := Open(ctx, st)
	require.NoError(t, err)
	records := reloaded.RecordsForStudent("s1")
	require.Len(t, records, 1)
	require.Equal(t, want.ID, records[0].ID)
	require.Equal(t, want.Status, records[0].Status)
	require.Equal(t, want.Time, records[0].Time)
	require.True(t, want.Date.Equal(records[0].Date), "timestamp must round-trip")
}

func TestOpenSeedsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	l, err := Open(ctx, st)
	require.NoError(t, err)
	require.Equal(t, len(seedRecords()), l.Len())

	// The seed is persisted immediately.
	raw, err := st.Load(ctx, Key)
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestOpenReseedsOnCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Save(ctx, Key, []byte("{not json")))

	l, err := Open(ctx, st)
	require.NoError(t, err, "corrupt state is recovered, not reported")
	require.Equal(t, len(seedRecords()), l.Len())
}

func TestMarkRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Memory: store.NewMemory()}
	require.NoError(t, fs.Save(ctx, Key, []byte("[]")))

	l, err := Open(ctx, fs)
	require.NoError(t, err)
	day := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return day })

	fs.fail = true
	_, err = l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.Error(t, err)
	require.Equal(t, 0, l.Len(), "failed write must not leave a partial mutation")

	// Once the store recovers the same mark goes through.
	fs.fail = false
	_, err = l.Mark(ctx, candidate("s1", day, StatusPresent))
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
}
