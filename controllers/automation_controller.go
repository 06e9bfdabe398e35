package controller

import (
	"encoding/json"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"promopilot/models"
	"promopilot/utils"
)

// AutomationController handles the automation rule JSON API.
type AutomationController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	validate *validator.Validate
}

func NewAutomationController(db *gorm.DB, logger *log.Logger) *AutomationController {
	return &AutomationController{
		DB:       db,
		Logger:   logger,
		validate: validator.New(),
	}
}

type automationInput struct {
	Name             string          `json:"name" validate:"required,max=120"`
	Kind             string          `json:"kind" validate:"required,oneof=birthday holiday anniversary inactivity trial_ending payment_failed cart_abandoned subscription_changed"`
	Channel          string          `json:"channel" validate:"required,oneof=email sms"`
	Enabled          *bool           `json:"enabled"`
	Subject          string          `json:"subject" validate:"max=255"`
	Body             string          `json:"body" validate:"required"`
	HTMLBody         string          `json:"html_body"`
	ImageURL         string          `json:"image_url" validate:"omitempty,url"`
	ImageOverlayText string          `json:"image_overlay_text"`
	DayOffset        int             `json:"day_offset" validate:"min=-31,max=31"`
	Timezone         string          `json:"timezone"`
	ContactListID    *uint           `json:"contact_list_id"`
	Params           json.RawMessage `json:"params"`
}

// CreateAutomation creates a rule for the authenticated user
func (ac *AutomationController) CreateAutomation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input automationInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := ac.validate.Struct(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = user.Timezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid timezone: " + timezone,
		})
	}

	if input.ContactListID != nil {
		var list models.ContactList
		if err := ac.DB.Where("id = ? AND user_id = ?", *input.ContactListID, user.ID).First(&list).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Contact list not found",
			})
		}
	}

	automation := models.Automation{
		UserID:           user.ID,
		Name:             input.Name,
		Kind:             input.Kind,
		Channel:          input.Channel,
		Enabled:          input.Enabled == nil || *input.Enabled,
		Subject:          input.Subject,
		Body:             input.Body,
		HTMLBody:         input.HTMLBody,
		ImageURL:         input.ImageURL,
		ImageOverlayText: input.ImageOverlayText,
		DayOffset:        input.DayOffset,
		Timezone:         timezone,
		ContactListID:    input.ContactListID,
		Params:           input.Params,
	}

	if err := ac.DB.Create(&automation).Error; err != nil {
		ac.Logger.Printf("Failed to create automation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create automation",
		})
	}

	utils.LogEvent("automation_created", map[string]interface{}{
		"automation_id": automation.ID,
		"user_id":       user.ID,
		"kind":          automation.Kind,
	})

	return c.Status(fiber.StatusCreated).JSON(automation)
}

// GetAutomations lists the user's rules
func (ac *AutomationController) GetAutomations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var automations []models.Automation
	query := ac.DB.Where("user_id = ?", user.ID).Order("id")
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Find(&automations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch automations",
		})
	}

	return c.JSON(automations)
}

// GetAutomation fetches one rule
func (ac *AutomationController) GetAutomation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var automation models.Automation
	if err := ac.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&automation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Automation not found",
		})
	}

	return c.JSON(automation)
}

// UpdateAutomation replaces a rule's definition. Counters are owned by
// the trigger pipeline and are not writable here.
func (ac *AutomationController) UpdateAutomation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var automation models.Automation
	if err := ac.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&automation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Automation not found",
		})
	}

	var input automationInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := ac.validate.Struct(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = automation.Timezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid timezone: " + timezone,
		})
	}

	automation.Name = input.Name
	automation.Kind = input.Kind
	automation.Channel = input.Channel
	if input.Enabled != nil {
		automation.Enabled = *input.Enabled
	}
	automation.Subject = input.Subject
	automation.Body = input.Body
	automation.HTMLBody = input.HTMLBody
	automation.ImageURL = input.ImageURL
	automation.ImageOverlayText = input.ImageOverlayText
	automation.DayOffset = input.DayOffset
	automation.Timezone = timezone
	automation.ContactListID = input.ContactListID
	automation.Params = input.Params

	if err := ac.DB.Save(&automation).Error; err != nil {
		ac.Logger.Printf("Failed to update automation %d: %v", automation.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update automation",
		})
	}

	return c.JSON(automation)
}

// ToggleAutomation flips the enabled flag
func (ac *AutomationController) ToggleAutomation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var automation models.Automation
	if err := ac.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&automation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Automation not found",
		})
	}

	automation.Enabled = !automation.Enabled
	if err := ac.DB.Model(&automation).Update("enabled", automation.Enabled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to toggle automation",
		})
	}

	return c.JSON(fiber.Map{
		"id":      automation.ID,
		"enabled": automation.Enabled,
	})
}

// DeleteAutomation removes a rule; its send log stays for reporting
func (ac *AutomationController) DeleteAutomation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	result := ac.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).Delete(&models.Automation{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete automation",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Automation not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Automation deleted successfully",
	})
}

// GetAutomationLogs pages through a rule's send log, newest first
func (ac *AutomationController) GetAutomationLogs(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var automation models.Automation
	if err := ac.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&automation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Automation not found",
		})
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	var logs []models.SendLog
	base := ac.DB.Model(&models.SendLog{}).Where("automation_id = ?", automation.ID)
	if err := base.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch send logs",
		})
	}
	if err := base.Order("sent_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch send logs",
		})
	}

	return c.JSON(fiber.Map{
		"data":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
