package notify

import (
	"fmt"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
)

const signature = "Batangas State University Mabini Campus Library"

// BorrowConfirmation tells a student what they borrowed and when it is due.
func BorrowConfirmation(s ledger.Student, rec ledger.BorrowRecord) Message {
	return Message{
		Kind:    KindBorrowConfirmation,
		To:      rec.Email,
		Subject: "Borrowed Book Notification",
		Body: fmt.Sprintf(`Hi %s,

You have borrowed a book from the library.

Book Details:
- Title: %s
- Author: %s
- Borrowed: %s
- Due Date: %s

Please return it on time.

Thank you,
%s
`, s.FullName, rec.Title, rec.Author, calendar.FormatDate(rec.BorrowDate), calendar.FormatDate(rec.ReturnDate), signature),
	}
}

// DueTomorrow reminds a borrower the day before the due date.
func DueTomorrow(b ledger.DueBorrow) Message {
	return Message{
		Kind:    KindDueTomorrow,
		To:      b.Email,
		Subject: "Book Due Tomorrow - Reminder",
		Body: fmt.Sprintf(`Hi %s,

This is a friendly reminder that your borrowed book is due tomorrow.

Book Details:
- Title: %s
- Author: %s
- Due Date: %s

Please return the book on time to avoid any penalties.

Thank you,
%s
`, b.FullName, b.Title, b.Author, calendar.FormatDate(b.ReturnDate), signature),
	}
}

// Overdue tells a borrower the due date has passed.
func Overdue(b ledger.DueBorrow) Message {
	return Message{
		Kind:    KindOverdue,
		To:      b.Email,
		Subject: "Book Overdue - Action Required",
		Body: fmt.Sprintf(`Hi %s,

Your borrowed book is now overdue.

Book Details:
- Title: %s
- Author: %s
- Due Date: %s (OVERDUE)

Please return the book as soon as possible.

Thank you,
%s
`, b.FullName, b.Title, b.Author, calendar.FormatDate(b.ReturnDate), signature),
	}
}
