package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"facemark/internal/ledger"
)

func TestCSV(t *testing.T) {
	records := []ledger.Record{
		{
			RollNumber:         "CS2021001",
			StudentName:        "Aarav Sharma",
			Department:         "Computer Science",
			Date:               time.Date(2024, 3, 5, 8, 55, 0, 0, time.UTC),
			Time:               "08:55 AM",
			Status:             ledger.StatusPresent,
			VerificationMethod: ledger.MethodFace,
		},
		{
			RollNumber:         "EC2021015",
			StudentName:        "Rohan Verma",
			Department:         "Electronics",
			Date:               time.Date(2024, 3, 5, 9, 20, 0, 0, time.UTC),
			Time:               "09:20 AM",
			Status:             ledger.StatusLate,
			VerificationMethod: ledger.MethodManual,
		},
	}

	var sb strings.Builder
	require.NoError(t, CSV(&sb, records))

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Roll Number,Name,Department,Date,Time,Status,Method", lines[0])
	require.Equal(t, "CS2021001,Aarav Sharma,Computer Science,2024-03-05,08:55 AM,present,face", lines[1])
	require.Equal(t, "EC2021015,Rohan Verma,Electronics,2024-03-05,09:20 AM,late,manual", lines[2])
}

func TestCSVEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, CSV(&sb, nil))
	require.Equal(t, "Roll Number,Name,Department,Date,Time,Status,Method\n", sb.String())
}

func TestFilename(t *testing.T) {
	require.Equal(t, "attendance-2024-03-05.csv", Filename("2024-03-05"))
}
