package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smmart/internal/auth"
	"smmart/internal/models"
)

const listColumnSize = 255

type topicResponse struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Prompt    string             `json:"prompt"`
	Keywords  []string           `json:"keywords"`
	Platform  []string           `json:"platform"`
	Status    models.TopicStatus `json:"status"`
	CreatedAt time.Time          `json:"creation_date"`
	UpdatedAt time.Time          `json:"last_update_date"`
}

func newTopicResponse(t models.Topic) topicResponse {
	return topicResponse{
		ID:        t.ID,
		Name:      t.Name,
		Prompt:    t.Prompt,
		Keywords:  models.SplitList(t.Keywords),
		Platform:  models.SplitList(t.Platform),
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type topicInput struct {
	Name     *string   `json:"name" binding:"omitempty,max=255"`
	Prompt   *string   `json:"prompt" binding:"omitempty,max=255"`
	Keywords *[]string `json:"keywords"`
	Platform *[]string `json:"platform"`
	Status   *string   `json:"status" binding:"omitempty,oneof=p c f"`
}

// apply copies the set fields onto t. It reports the first list that does
// not fit its column.
func (in topicInput) apply(t *models.Topic) (string, bool) {
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Prompt != nil {
		t.Prompt = *in.Prompt
	}
	if in.Keywords != nil {
		t.Keywords = models.JoinList(*in.Keywords)
		if len(t.Keywords) > listColumnSize {
			return "keywords", false
		}
	}
	if in.Platform != nil {
		t.Platform = models.JoinList(*in.Platform)
		if len(t.Platform) > listColumnSize {
			return "platform", false
		}
	}
	if in.Status != nil {
		t.Status = models.TopicStatus(*in.Status)
	}
	return "", true
}

// ownTopic loads a topic owned by the caller.
func ownTopic(db *gorm.DB, c *gin.Context) (*models.Topic, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	var t models.Topic
	err = db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, auth.Current(c).User.ID).
		First(&t).Error
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return &t, true
}

func ListTopics(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.WithContext(c.Request.Context()).
			Where("user_id = ?", auth.Current(c).User.ID).
			Order("id DESC")
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var topics []models.Topic
		if err := q.Find(&topics).Error; err != nil {
			respondError(c, err)
			return
		}
		out := make([]topicResponse, 0, len(topics))
		for _, t := range topics {
			out = append(out, newTopicResponse(t))
		}
		c.JSON(http.StatusOK, gin.H{"topics": out})
	}
}

func CreateTopic(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input topicInput
		if !bindJSON(c, &input) {
			return
		}
		if missingFields(c, map[string]bool{"name": input.Name != nil && *input.Name != ""}) {
			return
		}

		p := auth.Current(c)
		t := models.Topic{UserID: p.User.ID, Status: models.TopicPending}
		if field, ok := input.apply(&t); !ok {
			fieldError(c, field, "Too many items for this field.")
			return
		}
		t.Stamp(p.User.ID)

		if err := db.WithContext(c.Request.Context()).Create(&t).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newTopicResponse(t))
	}
}

func GetTopic(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := ownTopic(db, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newTopicResponse(*t))
	}
}

// UpdateTopic serves PUT (name required) and PATCH.
func UpdateTopic(db *gorm.DB, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input topicInput
		if !bindJSON(c, &input) {
			return
		}
		if !partial && missingFields(c, map[string]bool{"name": input.Name != nil && *input.Name != ""}) {
			return
		}

		t, ok := ownTopic(db, c)
		if !ok {
			return
		}
		if field, ok := input.apply(t); !ok {
			fieldError(c, field, "Too many items for this field.")
			return
		}
		t.Stamp(auth.Current(c).User.ID)

		if err := db.WithContext(c.Request.Context()).Save(t).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newTopicResponse(*t))
	}
}

func DeleteTopic(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := ownTopic(db, c)
		if !ok {
			return
		}
		if err := db.WithContext(c.Request.Context()).Delete(t).Error; err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
