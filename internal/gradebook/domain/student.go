package domain

import "fmt"

// Student links an estudiante account to its student record.
type Student struct {
	ID        int64
	AccountID int64
	Code      string
	Name      string
}

// StudentCode is the code assigned at registration, e.g. EST007.
func StudentCode(accountID int64) string {
	return fmt.Sprintf("EST%03d", accountID)
}

// Student standing thresholds.
const (
	StatusActive         = "activo"
	StatusLowPerformance = "bajo rendimiento"
	PassingAverage       = 3.0
	NoCourse             = "N/A"
)

// StudentSummary is a student with the average of all their grades.
type StudentSummary struct {
	ID      int64
	Code    string
	Name    string
	Email   string
	Average float64
}

// Status classifies the student by average.
func (s StudentSummary) Status() string {
	if s.Average >= PassingAverage {
		return StatusActive
	}
	return StatusLowPerformance
}
