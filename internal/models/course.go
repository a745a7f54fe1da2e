package models

import "time"

// CourseStatus controls whether a course accepts new selections.
type CourseStatus string

const (
	CourseStatusOpen   CourseStatus = "OPEN"
	CourseStatusClosed CourseStatus = "CLOSED"
)

// Course is the capacity-bearing unit students select into.
type Course struct {
	ID         string       `db:"id" json:"id"`
	Code       string       `db:"code" json:"code"`
	Name       string       `db:"name" json:"name"`
	MaxSeats   int          `db:"max_seats" json:"max_seats"`
	SeatsTaken int          `db:"seats_taken" json:"seats_taken"`
	Status     CourseStatus `db:"status" json:"status"`
	Semester   string       `db:"semester" json:"semester"`
	Credits    int          `db:"credits" json:"credits"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// FreeSeats returns the remaining capacity, never negative.
func (c Course) FreeSeats() int {
	if c.SeatsTaken >= c.MaxSeats {
		return 0
	}
	return c.MaxSeats - c.SeatsTaken
}

// Available reports whether a selection could currently succeed on capacity grounds.
func (c Course) Available() bool {
	return c.Status == CourseStatusOpen && c.SeatsTaken < c.MaxSeats
}

// CourseFilter scopes course listings.
type CourseFilter struct {
	Semester      string
	Status        CourseStatus
	OnlyAvailable bool
}
