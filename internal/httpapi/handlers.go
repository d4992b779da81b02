package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campuslibrary/internal/auth"
	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
)

type attendanceRequest struct {
	Token string `json:"token"`
	Hours int    `json:"hours"`
}

type borrowRequest struct {
	Token      string `json:"token"`
	ISBN       string `json:"isbn"`
	BookName   string `json:"bookname"`
	BookAuthor string `json:"bookauthor"`
	ReturnDays *int   `json:"returndays"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type returnRequest struct {
	Token string `json:"token"`
	ISBN  string `json:"isbn"`
}

type bookView struct {
	ISBN       string `json:"isbn"`
	BookName   string `json:"bookname"`
	BookAuthor string `json:"bookauthor"`
	BorrowDate string `json:"borrow_date"`
	ReturnDate string `json:"return_date"`
}

// bindBody decodes the JSON body. An empty body is allowed since the token may
// arrive as a bearer header instead.
func bindBody(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed request body", ledger.ErrInvalidArgument)
	}
	return nil
}

// identity decodes the caller's credential from the body token or the Authorization header.
func (s *server) identity(c *gin.Context, bodyToken string) (ledger.Identity, error) {
	token := strings.TrimSpace(bodyToken)
	if token == "" {
		token = auth.BearerToken(c)
	}
	if token == "" {
		return ledger.Identity{}, fmt.Errorf("%w: token is required", ledger.ErrInvalidArgument)
	}
	claim, err := s.Decoder.Decode(token)
	if err != nil {
		return ledger.Identity{}, err
	}
	return ledger.Identity{SRCode: claim.SRCode, FullName: claim.FullName, Type: claim.Type}, nil
}

func (s *server) recordAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := bindBody(c, &req); err != nil {
		writeError(c, err, http.StatusConflict)
		return
	}
	id, err := s.identity(c, req.Token)
	if err != nil {
		writeError(c, err, http.StatusConflict)
		return
	}

	receipt, err := s.Attendance.Record(c.Request.Context(), ledger.AttendanceRequest{Identity: id, Hours: req.Hours})
	if err != nil {
		writeError(c, err, http.StatusConflict)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  receipt.Message,
		"time_in":  receipt.Attendance.TimeIn.Format(timeOfDay),
		"time_out": receipt.Attendance.TimeOut.Format(timeOfDay),
	})
}

func (s *server) borrow(c *gin.Context) {
	var req borrowRequest
	if err := bindBody(c, &req); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	id, err := s.identity(c, req.Token)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}

	days := s.DefaultLoanDays
	if req.ReturnDays != nil {
		days = *req.ReturnDays
	}
	receipt, err := s.Lending.Borrow(c.Request.Context(), ledger.BorrowRequest{
		Identity: id,
		ISBN:     req.ISBN,
		Title:    req.BookName,
		Author:   req.BookAuthor,
		LoanDays: days,
	})
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     receipt.Message,
		"return_date": calendar.FormatDate(receipt.Borrow.ReturnDate),
	})
}

func (s *server) borrowed(c *gin.Context) {
	var req tokenRequest
	if err := bindBody(c, &req); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	id, err := s.identity(c, req.Token)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}

	rec, err := s.Lending.Current(c.Request.Context(), id.SRCode)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"borrowed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"borrowed": true,
		"book": bookView{
			ISBN:       rec.ISBN,
			BookName:   rec.Title,
			BookAuthor: rec.Author,
			BorrowDate: calendar.FormatDate(rec.BorrowDate),
			ReturnDate: calendar.FormatDate(rec.ReturnDate),
		},
	})
}

func (s *server) returnBook(c *gin.Context) {
	var req returnRequest
	if err := bindBody(c, &req); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	id, err := s.identity(c, req.Token)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}

	receipt, err := s.Lending.Return(c.Request.Context(), id, req.ISBN)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": receipt.Message})
}
