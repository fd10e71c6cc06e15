package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stampable/internal/models"
	"stampable/pkg/utils"
)

// TicketHandler 工单接口，演示时间戳插件的端到端行为
type TicketHandler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewTicketHandler 创建工单接口
func NewTicketHandler(db *gorm.DB, logger *logrus.Logger) *TicketHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &TicketHandler{db: db, logger: logger}
}

// TicketCreateRequest 创建工单请求
type TicketCreateRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// TicketUpdateRequest 更新工单请求
type TicketUpdateRequest struct {
	Title      *string `json:"title"`
	Body       *string `json:"body"`
	Status     *string `json:"status"`
	AssigneeID *uint   `json:"assignee_id"`
}

// Create POST /api/tickets
func (h *TicketHandler) Create(c *gin.Context) {
	var req TicketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket := models.Ticket{
		PublicID: utils.GeneratePublicID(),
		Title:    req.Title,
		Body:     req.Body,
		Status:   "open",
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&ticket).Error; err != nil {
		h.logger.Errorf("create ticket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create ticket"})
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// Get GET /api/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	var ticket models.Ticket
	err := h.db.WithContext(c.Request.Context()).
		Preload("Assignee").
		First(&ticket, "public_id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("load ticket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket"})
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// Update PATCH /api/tickets/:id
func (h *TicketHandler) Update(c *gin.Context) {
	var req TicketUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var ticket models.Ticket
	err := db.First(&ticket, "public_id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("load ticket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket"})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.AssigneeID != nil {
		var agent models.Agent
		if err := db.First(&agent, *req.AssigneeID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assignee not found"})
			return
		}
		updates["assignee_id"] = agent.ID
		// 关联对象进变更集，转交主管的 change 规则据此求值
		updates["Assignee"] = &agent
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, ticket)
		return
	}

	if err := db.Model(&ticket).Updates(updates).Error; err != nil {
		h.logger.Errorf("update ticket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ticket"})
		return
	}

	c.JSON(http.StatusOK, ticket)
}
