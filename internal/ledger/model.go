package ledger

import (
	"regexp"
	"strings"
	"time"
)

// AccountType is the closed set of account kinds a claim can carry.
type AccountType string

const (
	AccountStudent AccountType = "student"
	AccountTeacher AccountType = "teacher"
	AccountOther   AccountType = "other"
)

// ParseAccountType maps a claimed type label onto the closed set. Empty means student.
func ParseAccountType(label string) AccountType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "student":
		return AccountStudent
	case "teacher":
		return AccountTeacher
	default:
		return AccountOther
	}
}

// Purpose names the ledger path that is referencing a student.
type Purpose int

const (
	PurposeAttendance Purpose = iota + 1
	PurposeBorrow
)

// AutoRegisters reports whether an unknown account of this type is created on first reference.
func (t AccountType) AutoRegisters(p Purpose) bool {
	switch t {
	case AccountStudent:
		return true
	case AccountTeacher, AccountOther:
		return p == PurposeBorrow
	}
	return false
}

var srcodePattern = regexp.MustCompile(`^\d{2}-\d{5}$`)

// ValidSRCode reports whether code has the NN-NNNNN student format.
func ValidSRCode(code string) bool { return srcodePattern.MatchString(code) }

// Student is a library patron.
type Student struct {
	SRCode          string      `db:"srcode" json:"srcode"`
	FullName        string      `db:"fullname" json:"fullname"`
	Email           string      `db:"email" json:"email"`
	Type            AccountType `db:"type" json:"type"`
	AttendanceCount int         `db:"attendance_count" json:"attendance_count"`
	BookCount       int         `db:"book_count" json:"book_count"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// Book is identified by its normalized ISBN and never changes after creation.
type Book struct {
	ISBN      string    `db:"isbn" json:"isbn"`
	Title     string    `db:"bookname" json:"bookname"`
	Author    string    `db:"bookauthor" json:"bookauthor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BorrowRecord relates a student to a lent book. Dates are library-local midnights.
type BorrowRecord struct {
	ID         string    `db:"id" json:"id"`
	SRCode     string    `db:"srcode" json:"srcode"`
	Email      string    `db:"email" json:"email"`
	ISBN       string    `db:"isbn" json:"isbn"`
	Title      string    `db:"bookname" json:"bookname"`
	Author     string    `db:"bookauthor" json:"bookauthor"`
	BorrowDate time.Time `db:"borrow_date" json:"borrow_date"`
	ReturnDate time.Time `db:"return_date" json:"return_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Outstanding reports whether the record's return date is on or after today.
func (b BorrowRecord) Outstanding(today time.Time) bool {
	return !b.ReturnDate.Before(today)
}

// DueBorrow is a borrow record joined with its borrower, as the reminder job needs it.
type DueBorrow struct {
	BorrowRecord
	FullName string `db:"fullname" json:"fullname"`
}

// AttendanceRecord is one library visit.
type AttendanceRecord struct {
	ID      string    `db:"id" json:"id"`
	SRCode  string    `db:"srcode" json:"srcode"`
	Day     time.Time `db:"attend_date" json:"attend_date"`
	TimeIn  time.Time `db:"time_in" json:"time_in"`
	TimeOut time.Time `db:"time_out" json:"time_out"`
}

// Admin is a dashboard operator.
type Admin struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Receipt is the successful outcome of a ledger write.
type Receipt struct {
	Message    string
	Student    Student
	Registered bool
	Attendance *AttendanceRecord
	Borrow     *BorrowRecord
}

// AttendanceRank is a row of the top-attendance report.
type AttendanceRank struct {
	SRCode     string `db:"srcode" json:"srcode"`
	Name       string `db:"name" json:"name"`
	TotalHours int    `db:"total_hours" json:"total_hours"`
}

// BorrowRank is a row of the most-borrowed report.
type BorrowRank struct {
	SRCode        string `db:"srcode" json:"srcode"`
	Name          string `db:"name" json:"name"`
	BooksBorrowed int    `db:"books_borrowed" json:"books_borrowed"`
}

// DailyAttendance is a row of the today's-attendance report.
type DailyAttendance struct {
	SRCode string    `db:"srcode" json:"srcode"`
	Name   string    `db:"name" json:"name"`
	Hours  int       `db:"hours" json:"hours"`
	TimeIn time.Time `db:"time_in" json:"time_in"`
}
