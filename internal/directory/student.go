package directory

import "time"

// Student is a registered student. Fields other than ID and RegisteredAt
// are mutable through Update. RollNumber is display-only and is not
// enforced unique.
type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RollNumber   string    `json:"rollNumber"`
	Department   string    `json:"department"`
	Semester     int       `json:"semester"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	FaceImage    string    `json:"faceImage"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Fields carries the caller-supplied attributes for Add. The directory
// performs no validation on them; empty or out-of-range values are
// stored as given.
type Fields struct {
	Name       string
	RollNumber string
	Department string
	Semester   int
	Email      string
	Phone      string
	FaceImage  string
}

// Update carries a partial set of fields for Directory.Update; nil
// pointers leave the current value untouched.
type Update struct {
	Name       *string
	RollNumber *string
	Department *string
	Semester   *int
	Email      *string
	Phone      *string
	FaceImage  *string
}

// demoFaceImage is a 1x1 PNG data URL standing in for a webcam capture.
const demoFaceImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// seedStudents is the fixed demo dataset written on first use when no
// persisted state exists.
func seedStudents() []Student {
	registered := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	return []Student{
		{
			ID:           "stu-001",
			Name:         "Aarav Sharma",
			RollNumber:   "CS2021001",
			Department:   "Computer Science",
			Semester:     6,
			Email:        "aarav.sharma@college.edu",
			Phone:        "+91 98765 43210",
			FaceImage:    demoFaceImage,
			RegisteredAt: registered,
		},
		{
			ID:           "stu-002",
			Name:         "Priya Patel",
			RollNumber:   "CS2021002",
			Department:   "Computer Science",
			Semester:     6,
			Email:        "priya.patel@college.edu",
			Phone:        "+91 98765 43211",
			FaceImage:    demoFaceImage,
			RegisteredAt: registered.Add(10 * time.Minute),
		},
		{
			ID:           "stu-003",
			Name:         "Rohan Verma",
			RollNumber:   "EC2021015",
			Department:   "Electronics",
			Semester:     4,
			Email:        "rohan.verma@college.edu",
			Phone:        "+91 98765 43212",
			FaceImage:    demoFaceImage,
			RegisteredAt: registered.Add(20 * time.Minute),
		},
		{
			ID:           "stu-004",
			Name:         "Sneha Iyer",
			RollNumber:   "ME2021032",
			Department:   "Mechanical",
			Semester:     2,
			Email:        "sneha.iyer@college.edu",
			Phone:        "+91 98765 43213",
			FaceImage:    demoFaceImage,
			RegisteredAt: registered.Add(30 * time.Minute),
		},
		{
			ID:           "stu-005",
			Name:         "Arjun Nair",
			RollNumber:   "CS2021048",
			Department:   "Computer Science",
			Semester:     8,
			Email:        "arjun.nair@college.edu",
			Phone:        "+91 98765 43214",
			FaceImage:    demoFaceImage,
			RegisteredAt: registered.Add(40 * time.Minute),
		},
	}
}
