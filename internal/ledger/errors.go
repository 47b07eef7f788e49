package ledger

import "errors"

// ErrDuplicateAttendance is returned by Mark when the student already
// has a record for the candidate's calendar date. Callers surface it to
// the user and must not retry.
var ErrDuplicateAttendance = errors.New("attendance already marked for today")
