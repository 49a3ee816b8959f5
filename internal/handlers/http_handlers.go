package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/gorilla/websocket"

	"luckydraw/internal/command"
	"luckydraw/internal/models"
	"luckydraw/internal/notify"
	"luckydraw/internal/services"
)

// Version is reported by the system info endpoint.
const Version = "1.0.0"

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service         *services.LotteryService
	hub             *notify.Hub
	defaultOperator string
	upgrader        websocket.Upgrader
}

// NewHTTPHandler creates a new HTTPHandler. allowedOrigins is the same list
// the CORS middleware uses; it also gates websocket upgrades.
func NewHTTPHandler(service *services.LotteryService, hub *notify.Hub, defaultOperator string, allowedOrigins []string) *HTTPHandler {
	return &HTTPHandler{
		service:         service,
		hub:             hub,
		defaultOperator: defaultOperator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", h.HandleWebSocket)

	api := router.Group("/api")

	system := api.Group("/system")
	system.GET("/health", h.Health)
	system.GET("/info", h.SystemInfo)

	prizes := api.Group("/prizes")
	prizes.GET("", h.ListPrizes)
	prizes.POST("", h.CreatePrize)
	prizes.GET("/next", h.NextPendingPrize)
	prizes.GET("/statistics", h.PrizeStatistics)
	prizes.POST("/upload-csv", h.UploadPrizesCSV)
	prizes.GET("/:id", h.GetPrize)
	prizes.PUT("/:id", h.UpdatePrize)
	prizes.DELETE("/:id", h.DeletePrize)

	participants := api.Group("/participants")
	participants.GET("", h.ListParticipants)
	participants.POST("", h.AddParticipant)
	participants.GET("/statistics", h.ParticipantStatistics)
	participants.POST("/upload-csv", h.UploadParticipantsCSV)
	participants.POST("/batch-delete", h.DeleteParticipants)
	participants.GET("/:id", h.GetParticipant)
	participants.PUT("/:id", h.UpdateParticipant)
	participants.DELETE("/:id", h.DeleteParticipant)

	rigs := api.Group("/rig-settings")
	rigs.GET("", h.ListRigs)
	rigs.POST("", h.CreateRig)
	rigs.POST("/:id/cancel", h.CancelRig)
	rigs.DELETE("/:id", h.DeleteRig)

	lottery := api.Group("/lottery")
	lottery.POST("/draw", h.PerformDraw)
	lottery.POST("/cancel-win", h.CancelWin)
	lottery.POST("/reset", h.Reset)

	records := api.Group("/lottery-records")
	records.GET("", h.ListRecords)
	records.GET("/valid", h.ListValidRecords)
	records.GET("/export-csv", h.ExportResultsCSV)
	records.GET("/prize/:id", h.ListRecordsByPrize)
	records.GET("/participant/:id", h.ListRecordsByParticipant)

	api.POST("/commands", h.ExecuteCommand)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": msg})
}

// fail writes err with a status matching its kind. The message is always
// the text meant for the operator.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "系統錯誤：" + err.Error()
	var lerr *services.Error
	if errors.As(err, &lerr) {
		msg = lerr.Message
		switch lerr.Kind {
		case services.KindNotFound:
			status = http.StatusNotFound
		case services.KindPrecondition:
			status = http.StatusConflict
		}
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"code": status, "message": msg})
}

func (h *HTTPHandler) operator(name string) string {
	if strings.TrimSpace(name) == "" {
		return h.defaultOperator
	}
	return name
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	ok(c, "OK")
}

// SystemInfo reports server time, version and roster/prize statistics.
func (h *HTTPHandler) SystemInfo(c *gin.Context) {
	ctx := c.Request.Context()
	participantStats, err := h.service.ParticipantStatistics(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	prizeStats, err := h.service.PrizeStatistics(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"serverTime":       time.Now(),
		"version":          Version,
		"participantStats": participantStats,
		"prizeStats":       prizeStats,
		"observers":        h.hub.Len(),
	})
}

// ListPrizes returns prizes by level, optionally filtered by ?status=.
func (h *HTTPHandler) ListPrizes(c *gin.Context) {
	prizes, err := h.service.ListPrizes(c.Request.Context(), models.PrizeStatus(c.Query("status")))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, prizes)
}

// GetPrize returns one prize.
func (h *HTTPHandler) GetPrize(c *gin.Context) {
	prize, err := h.service.GetPrize(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, prize)
}

// NextPendingPrize returns the prize drawn when none is named.
func (h *HTTPHandler) NextPendingPrize(c *gin.Context) {
	prize, err := h.service.NextPendingPrize(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, prize)
}

// PrizeStatistics returns prize progress counters.
func (h *HTTPHandler) PrizeStatistics(c *gin.Context) {
	stats, err := h.service.PrizeStatistics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}

// CreatePrize handles a JSON prize definition.
func (h *HTTPHandler) CreatePrize(c *gin.Context) {
	var in services.PrizeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid prize: "+err.Error())
		return
	}
	prize, err := h.service.CreatePrize(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, prize)
}

// UpdatePrize edits a prize that has not been drawn.
func (h *HTTPHandler) UpdatePrize(c *gin.Context) {
	var in services.PrizeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid prize: "+err.Error())
		return
	}
	prize, err := h.service.UpdatePrize(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, prize)
}

// DeletePrize removes a prize that has not been drawn.
func (h *HTTPHandler) DeletePrize(c *gin.Context) {
	if err := h.service.DeletePrize(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// UploadPrizesCSV handles the CSV upload for prizes.
// Columns: name, level, count, description (optional).
func (h *HTTPHandler) UploadPrizesCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "Error retrieving file: "+err.Error())
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	result := &services.ImportResult{Errors: []string{}}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badRequest(c, "Error reading CSV: "+err.Error())
			return
		}
		if row == 1 && isHeader(record) {
			continue
		}
		result.Total++

		if len(record) < 3 {
			logger.Infof("Skipping malformed prize CSV record: %v", record)
			result.Failed++
			result.Errors = append(result.Errors, "第"+strconv.Itoa(row)+"行：欄位不足")
			continue
		}
		level, errLevel := strconv.Atoi(strings.TrimSpace(record[1]))
		count, errCount := strconv.Atoi(strings.TrimSpace(record[2]))
		if errLevel != nil || errCount != nil {
			logger.Infof("Skipping prize CSV record with invalid number: %v", record)
			result.Failed++
			result.Errors = append(result.Errors, "第"+strconv.Itoa(row)+"行：等級或人數格式錯誤")
			continue
		}
		in := services.PrizeInput{Name: record[0], Level: level, Count: count}
		if len(record) > 3 {
			in.Description = record[3]
		}
		if _, err := h.service.CreatePrize(ctx, in); err != nil {
			var lerr *services.Error
			if !errors.As(err, &lerr) {
				fail(c, err)
				return
			}
			result.Failed++
			result.Errors = append(result.Errors, "第"+strconv.Itoa(row)+"行："+lerr.Message)
			continue
		}
		result.Success++
	}
	ok(c, result)
}

// ListParticipants returns the roster, optionally filtered by ?status=.
func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	list, err := h.service.ListParticipants(c.Request.Context(), models.ParticipantStatus(c.Query("status")))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, list)
}

// GetParticipant returns one participant.
func (h *HTTPHandler) GetParticipant(c *gin.Context) {
	p, err := h.service.GetParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, p)
}

// ParticipantStatistics returns roster counters.
func (h *HTTPHandler) ParticipantStatistics(c *gin.Context) {
	stats, err := h.service.ParticipantStatistics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}

// AddParticipant handles a JSON participant.
func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	var in services.ParticipantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid participant: "+err.Error())
		return
	}
	p, err := h.service.AddParticipant(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, p)
}

// UpdateParticipant edits name, employee id and department.
func (h *HTTPHandler) UpdateParticipant(c *gin.Context) {
	var in services.ParticipantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid participant: "+err.Error())
		return
	}
	p, err := h.service.UpdateParticipant(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, p)
}

// DeleteParticipant removes a participant who has not won.
func (h *HTTPHandler) DeleteParticipant(c *gin.Context) {
	if err := h.service.DeleteParticipant(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// DeleteParticipants removes many participants and reports per-item failures.
func (h *HTTPHandler) DeleteParticipants(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	failures, err := h.service.DeleteParticipants(c.Request.Context(), req.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": len(req.IDs) - len(failures), "errors": failures})
}

// UploadParticipantsCSV handles the CSV upload for participants.
// Columns: name, employeeId (optional), department (optional).
func (h *HTTPHandler) UploadParticipantsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "Error retrieving file: "+err.Error())
		return
	}
	defer file.Close()

	rows, firstRow, err := readParticipantRows(file)
	if err != nil {
		badRequest(c, "Error reading CSV: "+err.Error())
		return
	}
	result, err := h.service.ImportParticipants(c.Request.Context(), rows, firstRow)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func readParticipantRows(r io.Reader) ([]services.ParticipantInput, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	firstRow := 1
	if len(records) > 0 && isHeader(records[0]) {
		records = records[1:]
		firstRow = 2
	}
	rows := make([]services.ParticipantInput, 0, len(records))
	for _, record := range records {
		var in services.ParticipantInput
		if len(record) > 0 {
			in.Name = strings.TrimPrefix(record[0], "\ufeff")
		}
		if len(record) > 1 {
			in.EmployeeID = record[1]
		}
		if len(record) > 2 {
			in.Department = record[2]
		}
		rows = append(rows, in)
	}
	return rows, firstRow, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")))
	switch first {
	case "name", "姓名", "獎項名稱", "prize":
		return true
	}
	return false
}

// ListRigs returns rig directives, optionally filtered by ?status=.
func (h *HTTPHandler) ListRigs(c *gin.Context) {
	rigs, err := h.service.ListRigs(c.Request.Context(), models.RigStatus(c.Query("status")))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rigs)
}

// CreateRig handles a rig directive request.
func (h *HTTPHandler) CreateRig(c *gin.Context) {
	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
		PrizeID       string `json:"prizeId" binding:"required"`
		Operator      string `json:"operator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid rig setting: "+err.Error())
		return
	}
	rig, err := h.service.CreateRig(c.Request.Context(), req.ParticipantID, req.PrizeID, h.operator(req.Operator))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rig)
}

// CancelRig withdraws a pending rig directive.
func (h *HTTPHandler) CancelRig(c *gin.Context) {
	rig, err := h.service.CancelRig(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rig)
}

// DeleteRig removes a rig directive that has not been used.
func (h *HTTPHandler) DeleteRig(c *gin.Context) {
	if err := h.service.DeleteRig(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// PerformDraw handles the request to draw the winners of a prize.
func (h *HTTPHandler) PerformDraw(c *gin.Context) {
	var req struct {
		PrizeID  string `json:"prizeId" binding:"required"`
		Operator string `json:"operator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please select a prize.")
		return
	}
	result, err := h.service.Draw(c.Request.Context(), req.PrizeID, h.operator(req.Operator))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// CancelWin handles the request to revoke a participant's win.
func (h *HTTPHandler) CancelWin(c *gin.Context) {
	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
		Operator      string `json:"operator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please select a participant.")
		return
	}
	entry, err := h.service.CancelWin(c.Request.Context(), req.ParticipantID, h.operator(req.Operator))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entry)
}

// Reset wipes all draw state.
func (h *HTTPHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// ListRecords returns every history entry.
func (h *HTTPHandler) ListRecords(c *gin.Context) {
	entries, err := h.service.ListHistory(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entries)
}

// ListValidRecords returns the standing wins, newest first.
func (h *HTTPHandler) ListValidRecords(c *gin.Context) {
	entries, err := h.service.ListValidHistory(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entries)
}

// ListRecordsByPrize returns the standing wins of one prize.
func (h *HTTPHandler) ListRecordsByPrize(c *gin.Context) {
	entries, err := h.service.ListHistoryByPrize(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entries)
}

// ListRecordsByParticipant returns the standing wins of one participant.
func (h *HTTPHandler) ListRecordsByParticipant(c *gin.Context) {
	entries, err := h.service.ListHistoryByParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entries)
}

// ExportResultsCSV handles the request to download the standing wins as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	entries, err := h.service.ListValidHistory(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=lottery_results.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"獎項等級", "獎項名稱", "中獎人", "抽取方式", "操作人", "抽獎時間"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		return
	}
	for _, e := range entries {
		row := []string{
			strconv.Itoa(e.PrizeLevel),
			e.PrizeName,
			e.ParticipantName,
			string(e.Action),
			e.Operator,
			e.DrawTime.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
	}
}

type commandRequest struct {
	Transcript string `json:"transcript" binding:"required"`
	Operator   string `json:"operator"`
}

// ExecuteCommand parses and runs a host command and broadcasts the outcome.
func (h *HTTPHandler) ExecuteCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid command: "+err.Error())
		return
	}
	ok(c, h.runCommand(c, req))
}

func (h *HTTPHandler) runCommand(c *gin.Context, req commandRequest) *services.CommandResponse {
	logger.Infof("command received: %s", req.Transcript)
	resp := h.service.ExecuteCommand(c.Request.Context(), command.Parse(req.Transcript), h.operator(req.Operator))
	h.hub.Broadcast(notify.Message{Type: notify.TypeCommandResult, Data: resp})
	return resp
}
