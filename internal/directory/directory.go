package directory

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"facemark/internal/store"
)

// Key is the persistence key the directory writes its full student set
// under after every mutation.
const Key = "students"

// Directory owns the set of registered students. All mutation goes
// through its methods; each one rewrites the full persisted snapshot and
// either fully commits or leaves the in-memory set unchanged.
type Directory struct {
	mu       sync.Mutex
	store    store.Store
	now      func() time.Time
	students []Student
}

// Open loads the persisted student set, seeding the fixed demo dataset
// when no state exists or when the stored snapshot fails to parse.
// Corrupt state is a recovery case, not an error.
func Open(ctx context.Context, st store.Store) (*Directory, error) {
	d := &Directory{store: st, now: time.Now}
	raw, err := st.Load(ctx, Key)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &d.students); err == nil {
			return d, nil
		}
		log.Printf("directory: discarding malformed snapshot, reseeding: %v", err)
	}
	d.students = seedStudents()
	if err := d.persist(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// SetClock overrides the time source, for tests.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// Add registers a new student with a fresh id and RegisteredAt = now.
func (d *Directory) Add(ctx context.Context, fields Fields) (Student, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Student{
		ID:           uuid.NewString(),
		Name:         fields.Name,
		RollNumber:   fields.RollNumber,
		Department:   fields.Department,
		Semester:     fields.Semester,
		Email:        fields.Email,
		Phone:        fields.Phone,
		FaceImage:    fields.FaceImage,
		RegisteredAt: d.now(),
	}
	d.students = append(d.students, s)
	if err := d.persist(ctx); err != nil {
		d.students = d.students[:len(d.students)-1]
		return Student{}, err
	}
	return s, nil
}

// Update merges the non-nil fields of upd into the matching student.
// A missing id is a benign no-op.
func (d *Directory) Update(ctx context.Context, id string, upd Update) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.students {
		if d.students[i].ID != id {
			continue
		}
		prev := d.students[i]
		apply(&d.students[i], upd)
		if err := d.persist(ctx); err != nil {
			d.students[i] = prev
			return err
		}
		return nil
	}
	return nil
}

// Remove deletes the student with the given id. Removing an unknown id
// is idempotent: it changes nothing and returns nil.
func (d *Directory) Remove(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.students {
		if d.students[i].ID != id {
			continue
		}
		removed := d.students[i]
		d.students = append(d.students[:i], d.students[i+1:]...)
		if err := d.persist(ctx); err != nil {
			d.students = append(d.students[:i], append([]Student{removed}, d.students[i:]...)...)
			return err
		}
		return nil
	}
	return nil
}

// GetByID returns the student and whether it exists.
func (d *Directory) GetByID(id string) (Student, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.students {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

// List returns all students in insertion order.
func (d *Directory) List() []Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Student, len(d.students))
	copy(out, d.students)
	return out
}

// Count returns the number of registered students.
func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.students)
}

func (d *Directory) persist(ctx context.Context) error {
	raw, err := json.Marshal(d.students)
	if err != nil {
		return err
	}
	return d.store.Save(ctx, Key, raw)
}

func apply(s *Student, upd Update) {
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.RollNumber != nil {
		s.RollNumber = *upd.RollNumber
	}
	if upd.Department != nil {
		s.Department = *upd.Department
	}
	if upd.Semester != nil {
		s.Semester = *upd.Semester
	}
	if upd.Email != nil {
		s.Email = *upd.Email
	}
	if upd.Phone != nil {
		s.Phone = *upd.Phone
	}
	if upd.FaceImage != nil {
		s.FaceImage = *upd.FaceImage
	}
}
