package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
)

// SettingsHandler manages the sender number and the blocklist
type SettingsHandler struct {
	store  storage.Store
	access *services.AccessFilter
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store storage.Store, access *services.AccessFilter) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		access: access,
	}
}

// AppSettings is the body of GET/PUT /api/app-settings
type AppSettings struct {
	WhatsAppPhone string `json:"whatsappPhone"`
}

// GetAppSettings returns the configured WhatsApp sender number
func (h *SettingsHandler) GetAppSettings(c *fiber.Ctx) error {
	phone, err := h.store.GetSetting(c.UserContext(), models.SettingWhatsAppPhone)
	if err != nil {
		return err
	}
	return c.JSON(AppSettings{WhatsAppPhone: phone})
}

// UpdateAppSettings stores the WhatsApp sender number
func (h *SettingsHandler) UpdateAppSettings(c *fiber.Ctx) error {
	var req AppSettings
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	phone := strings.TrimSpace(req.WhatsAppPhone)
	if err := h.store.SetSetting(c.UserContext(), models.SettingWhatsAppPhone, phone); err != nil {
		return err
	}
	return c.JSON(AppSettings{WhatsAppPhone: phone})
}

// BlockedNumbers is the body of GET/PUT /api/blocked-numbers
type BlockedNumbers struct {
	BlockedNumbers []string `json:"blockedNumbers"`
}

// GetBlockedNumbers returns the blocklist
func (h *SettingsHandler) GetBlockedNumbers(c *fiber.Ctx) error {
	list, err := h.access.BlockedNumbers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(BlockedNumbers{BlockedNumbers: list})
}

// UpdateBlockedNumbers replaces the blocklist
func (h *SettingsHandler) UpdateBlockedNumbers(c *fiber.Ctx) error {
	var req BlockedNumbers
	if err := c.BodyParser(&req); err != nil || req.BlockedNumbers == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "blockedNumbers must be an array",
		})
	}
	list, err := h.access.SetBlockedNumbers(c.UserContext(), req.BlockedNumbers)
	if err != nil {
		return err
	}
	return c.JSON(BlockedNumbers{BlockedNumbers: list})
}
