package models

import "time"

// SessionStatus is the attendance state of one dated course meeting.
type SessionStatus string

const (
	SessionStatusPresent   SessionStatus = "present"
	SessionStatusBunked    SessionStatus = "bunked"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPresent, SessionStatusBunked, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// Session is one concrete dated occurrence of a course.
type Session struct {
	ID        string        `db:"id" json:"id"`
	CourseID  string        `db:"course_id" json:"course_id"`
	Date      time.Time     `db:"date" json:"date"`
	Status    SessionStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// Key identifies the (course, date) pair a session occupies.
func (s Session) Key() SessionKey {
	return NewSessionKey(s.CourseID, s.Date)
}

// SessionKey is the uniqueness key of a session.
type SessionKey struct {
	CourseID string
	Date     string
}

// NewSessionKey builds a key from a course id and calendar date.
func NewSessionKey(courseID string, date time.Time) SessionKey {
	return SessionKey{CourseID: courseID, Date: date.Format("2006-01-02")}
}

// SessionOwner extends a session with the collection it belongs to.
type SessionOwner struct {
	Session
	CollectionID string `db:"collection_id" json:"collection_id"`
	OwnerID      string `db:"owner_id" json:"owner_id"`
}

// DaySession is a course's session on a given date.
type DaySession struct {
	SessionID  string        `db:"session_id" json:"session_id"`
	CourseID   string        `db:"course_id" json:"course_id"`
	CourseName string        `db:"course_name" json:"name"`
	Date       time.Time     `db:"date" json:"date"`
	Status     SessionStatus `db:"status" json:"status"`
}
