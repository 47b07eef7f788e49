package ledger

import "time"

// Status is the attendance outcome recorded for a student.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Method is how the mark was verified.
type Method string

const (
	MethodFace   Method = "face"
	MethodManual Method = "manual"
)

// Record is an immutable attendance mark. Student attributes are
// denormalized at marking time so history stays meaningful after the
// student changes or is deleted; StudentID is a weak reference.
type Record struct {
	ID                 string    `json:"id"`
	StudentID          string    `json:"studentId"`
	StudentName        string    `json:"studentName"`
	RollNumber         string    `json:"rollNumber"`
	Department         string    `json:"department"`
	Date               time.Time `json:"date"`
	Time               string    `json:"time"`
	Status             Status    `json:"status"`
	VerificationMethod Method    `json:"verificationMethod"`
}

// Candidate carries everything Mark needs to create a record, minus the
// id the ledger assigns itself.
type Candidate struct {
	StudentID          string    `json:"studentId"`
	StudentName        string    `json:"studentName"`
	RollNumber         string    `json:"rollNumber"`
	Department         string    `json:"department"`
	Date               time.Time `json:"date"`
	Time               string    `json:"time"`
	Status             Status    `json:"status"`
	VerificationMethod Method    `json:"verificationMethod"`
}

// Stats is the dashboard aggregate derived from today's records and the
// trailing 30-day window.
type Stats struct {
	TotalStudents     int `json:"totalStudents"`
	PresentToday      int `json:"presentToday"`
	AbsentToday       int `json:"absentToday"`
	AverageAttendance int `json:"averageAttendance"`
}

// seedRecords is the fixed demo dataset written on first use.
func seedRecords() []Record {
	day := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	return []Record{
		{
			ID:                 "rec-001",
			StudentID:          "stu-001",
			StudentName:        "Aarav Sharma",
			RollNumber:         "CS2021001",
			Department:         "Computer Science",
			Date:               day.Add(8*time.Hour + 55*time.Minute),
			Time:               "08:55 AM",
			Status:             StatusPresent,
			VerificationMethod: MethodFace,
		},
		{
			ID:                 "rec-002",
			StudentID:          "stu-002",
			StudentName:        "Priya Patel",
			RollNumber:         "CS2021002",
			Department:         "Computer Science",
			Date:               day.Add(9*time.Hour + 20*time.Minute),
			Time:               "09:20 AM",
			Status:             StatusLate,
			VerificationMethod: MethodFace,
		},
		{
			ID:                 "rec-003",
			StudentID:          "stu-003",
			StudentName:        "Rohan Verma",
			RollNumber:         "EC2021015",
			Department:         "Electronics",
			Date:               day.Add(8*time.Hour + 47*time.Minute),
			Time:               "08:47 AM",
			Status:             StatusPresent,
			VerificationMethod: MethodManual,
		},
	}
}
