package httpapi

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
)

// timeOfDay is how visit times are shown on the dashboard and in exports.
const timeOfDay = "03:04 PM"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type attendanceRankView struct {
	Name       string `json:"name"`
	TotalHours int    `json:"total_hours"`
}

type borrowRankView struct {
	Name          string `json:"name"`
	BooksBorrowed int    `json:"books_borrowed"`
}

func (s *server) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := bindBody(c, &req); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	session, err := s.Admins.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      session.Token,
		"username":   req.Username,
		"expires_at": session.ExpiresAt.Unix(),
	})
}

func (s *server) topAttendance(c *gin.Context) {
	rows, err := s.Reports.TopAttendance(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	students := make([]attendanceRankView, 0, len(rows))
	for _, r := range rows {
		students = append(students, attendanceRankView{Name: r.Name, TotalHours: r.TotalHours})
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *server) mostBorrowed(c *gin.Context) {
	rows, err := s.Reports.MostBorrowed(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	students := make([]borrowRankView, 0, len(rows))
	for _, r := range rows {
		students = append(students, borrowRankView{Name: r.Name, BooksBorrowed: r.BooksBorrowed})
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *server) todayAttendance(c *gin.Context) {
	rows, err := s.Reports.Today(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": s.feedItems(rows)})
}

func (s *server) feedItems(rows []ledger.DailyAttendance) []FeedItem {
	items := make([]FeedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, FeedItem{
			SRCode: r.SRCode,
			Name:   r.Name,
			Hours:  r.Hours,
			Time:   r.TimeIn.In(s.Clock.Location()).Format(timeOfDay),
		})
	}
	return items
}

func (s *server) exportTodayAttendance(c *gin.Context) {
	rows, err := s.Reports.Today(c.Request.Context())
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}

	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(file.GetActiveSheetIndex())

	headers := []string{"No", "SR-Code", "Name", "Hours", "Time In"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(sheet, cell, header)
	}
	for i, item := range s.feedItems(rows) {
		row := i + 2
		_ = file.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		_ = file.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.SRCode)
		_ = file.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.Name)
		_ = file.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Hours)
		_ = file.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.Time)
	}

	buffer, err := file.WriteToBuffer()
	if err != nil {
		log.Printf("attendance export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", calendar.FormatDate(s.Clock.Today()))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buffer.Bytes())
}

func (s *server) runReminders(c *gin.Context) {
	report := s.Reminders.Run(c.Request.Context())
	body := gin.H{
		"day":          calendar.FormatDate(report.Day),
		"due_tomorrow": report.DueTomorrow,
		"overdue":      report.Overdue,
		"sent":         report.Sent,
		"failed":       report.Failed,
	}
	if report.Err != nil {
		body["error"] = "reminder run aborted"
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *server) attendanceFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.Hub.serve(conn)
}
