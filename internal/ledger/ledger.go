package ledger

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"facemark/internal/store"
)

// Key is the persistence key the ledger writes its full record set under
// after every mutation.
const Key = "attendanceRecords"

// windowDays is the trailing window the average-attendance density is
// computed over.
const windowDays = 30

// Ledger owns the attendance records and enforces the one-mark-per-day
// rule. Mutations rewrite the full persisted snapshot and either fully
// commit or leave the in-memory set unchanged.
type Ledger struct {
	mu      sync.Mutex
	store   store.Store
	now     func() time.Time
	records []Record
}

// Open loads the persisted record set, seeding the fixed demo dataset
// when no state exists or the snapshot fails to parse.
func Open(ctx context.Context, st store.Store) (*Ledger, error) {
	l := &Ledger{store: st, now: time.Now}
	raw, err := st.Load(ctx, Key)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &l.records); err == nil {
			return l, nil
		}
		log.Printf("ledger: discarding malformed snapshot, reseeding: %v", err)
	}
	l.records = seedRecords()
	if err := l.persist(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// SetClock overrides the time source, for tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// dateKey is the calendar-date partition a timestamp falls into;
// time-of-day is discarded.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Mark records attendance for the candidate's calendar date. If the
// student already has a record on that date it returns
// ErrDuplicateAttendance and changes nothing.
func (l *Ledger) Mark(ctx context.Context, c Candidate) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := dateKey(c.Date)
	for _, r := range l.records {
		if r.StudentID == c.StudentID && dateKey(r.Date) == day {
			return Record{}, ErrDuplicateAttendance
		}
	}

	rec := Record{
		ID:                 uuid.NewString(),
		StudentID:          c.StudentID,
		StudentName:        c.StudentName,
		RollNumber:         c.RollNumber,
		Department:         c.Department,
		Date:               c.Date,
		Time:               c.Time,
		Status:             c.Status,
		VerificationMethod: c.VerificationMethod,
	}
	l.records = append(l.records, rec)
	if err := l.persist(ctx); err != nil {
		l.records = l.records[:len(l.records)-1]
		return Record{}, err
	}
	return rec, nil
}

// RecordsForDate returns the records whose calendar date matches the
// given date's, in insertion order.
func (l *Ledger) RecordsForDate(date time.Time) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter(func(r Record) bool {
		return dateKey(r.Date) == dateKey(date)
	})
}

// RecordsForStudent returns the student's records in insertion order.
func (l *Ledger) RecordsForStudent(studentID string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter(func(r Record) bool {
		return r.StudentID == studentID
	})
}

// TodayRecords returns the records for the current calendar date.
func (l *Ledger) TodayRecords() []Record {
	return l.RecordsForDate(l.now())
}

// ComputeStats derives the dashboard aggregate. averageAttendance is a
// density metric, total marks over total possible student-days in the
// trailing window, capped at 100. absentToday is not clamped and goes
// negative when totalStudents undercounts.
func (l *Ledger) ComputeStats(totalStudents int) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	today := dateKey(now)
	presentToday := 0
	for _, r := range l.records {
		if dateKey(r.Date) == today && (r.Status == StatusPresent || r.Status == StatusLate) {
			presentToday++
		}
	}

	average := 0
	if totalStudents > 0 {
		windowStart := now.AddDate(0, 0, -windowDays)
		inWindow := 0
		for _, r := range l.records {
			if !r.Date.Before(windowStart) {
				inWindow++
			}
		}
		average = int(math.Round(float64(inWindow) / float64(totalStudents*windowDays) * 100))
		if average > 100 {
			average = 100
		}
	}

	return Stats{
		TotalStudents:     totalStudents,
		PresentToday:      presentToday,
		AbsentToday:       totalStudents - presentToday,
		AverageAttendance: average,
	}
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Ledger) filter(keep func(Record) bool) []Record {
	var out []Record
	for _, r := range l.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (l *Ledger) persist(ctx context.Context) error {
	raw, err := json.Marshal(l.records)
	if err != nil {
		return err
	}
	return l.store.Save(ctx, Key, raw)
}
