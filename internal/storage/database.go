package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// DatabaseStore persists everything through GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by db
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Migrate creates or updates the tables used by the store
func (s *DatabaseStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.Message{},
		&models.Appointment{},
		&models.AppSetting{},
	)
}

// Message operations
func (s *DatabaseStore) AppendMessage(ctx context.Context, msg *models.Message) (uint, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	return msg.ID, nil
}

func (s *DatabaseStore) GetMessagesByParticipant(ctx context.Context, identifier string, limit int) ([]*models.Message, error) {
	suffix := utils.Suffix(identifier)
	if suffix == "" {
		return nil, nil
	}

	fromCond, arg := suffixMatch("from_phone", suffix)
	toCond, _ := suffixMatch("to_phone", suffix)
	query := s.db.WithContext(ctx).
		Where(fromCond+" OR "+toCond, arg, arg).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []*models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("query messages for %s: %w", identifier, err)
	}

	// newest first from the query, callers want chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *DatabaseStore) GetMessages(ctx context.Context, contact string) ([]*models.Message, error) {
	query := s.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if contact = strings.TrimSpace(contact); contact != "" {
		pattern := "%" + contact + "%"
		query = query.Where("from_phone LIKE ? OR to_phone LIKE ?", pattern, pattern)
	}

	var messages []*models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return messages, nil
}

// Appointment operations
func (s *DatabaseStore) CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if err := s.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return appointment, nil
}

func (s *DatabaseStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&appointment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return &appointment, nil
}

func (s *DatabaseStore) GetUpcomingAppointments(ctx context.Context, statuses []string, fromDate string) ([]*models.Appointment, error) {
	var appointments []*models.Appointment
	err := s.db.WithContext(ctx).
		Where("status IN ? AND appointment_date >= ?", statuses, fromDate).
		Order("appointment_date ASC, appointment_time ASC, id ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("query upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (s *DatabaseStore) GetAppointmentsByPhone(ctx context.Context, phone string) ([]*models.Appointment, error) {
	suffix := utils.Suffix(phone)
	if suffix == "" {
		return nil, nil
	}

	cond, arg := suffixMatch("contact_phone", suffix)
	var candidates []*models.Appointment
	err := s.db.WithContext(ctx).
		Where(cond, arg).
		Order("appointment_date ASC, appointment_time ASC, id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("query appointments for %s: %w", phone, err)
	}

	// the booking subsystem writes contact_phone in any format, so the SQL
	// match is only a prefilter
	appointments := candidates[:0]
	for _, a := range candidates {
		if utils.SameParticipant(a.ContactPhone, suffix) {
			appointments = append(appointments, a)
		}
	}
	return appointments, nil
}

// digitsExpr strips the punctuation phone numbers are usually written with.
// REPLACE and LTRIM behave the same on PostgreSQL and SQLite.
func digitsExpr(column string) string {
	expr := column
	for _, ch := range []string{" ", "+", "-", "(", ")", "."} {
		expr = "REPLACE(" + expr + ", '" + ch + "', '')"
	}
	return expr
}

// suffixMatch builds the SQL form of utils.SameParticipant for column against
// an identifier already reduced by utils.Suffix.
func suffixMatch(column, suffix string) (string, interface{}) {
	if utils.IsGroupID(suffix) {
		return "TRIM(" + column + ") = ?", suffix
	}
	digits := digitsExpr(column)
	if len(suffix) == utils.SubscriberDigits {
		return digits + " LIKE ?", "%" + suffix
	}
	return "LTRIM(" + digits + ", '0') = ?", suffix
}

// MarkReminderSent is a conditional update: the marker is only written when
// it is still NULL, so exactly one caller claims each reminder.
func (s *DatabaseStore) MarkReminderSent(ctx context.Context, appointmentID string, kind models.ReminderKind, at time.Time) (bool, error) {
	column, ok := markerColumn(kind)
	if !ok {
		return false, fmt.Errorf("unknown reminder kind %q", kind)
	}

	result := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND "+column+" IS NULL", appointmentID).
		Updates(map[string]interface{}{column: at, "updated_at": time.Now()})
	if result.Error != nil {
		return false, fmt.Errorf("mark %s reminder for %s: %w", kind, appointmentID, result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", appointmentID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check appointment %s: %w", appointmentID, err)
	}
	if count == 0 {
		return false, fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	return false, nil
}

func (s *DatabaseStore) ReleaseReminder(ctx context.Context, appointmentID string, kind models.ReminderKind) error {
	column, ok := markerColumn(kind)
	if !ok {
		return fmt.Errorf("unknown reminder kind %q", kind)
	}

	result := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", appointmentID).
		Updates(map[string]interface{}{column: gorm.Expr("NULL"), "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("release %s reminder for %s: %w", kind, appointmentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	return nil
}

// Settings operations
func (s *DatabaseStore) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.AppSetting
	err := s.db.WithContext(ctx).Where(&models.AppSetting{Key: key}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return setting.Value, nil
}

func (s *DatabaseStore) SetSetting(ctx context.Context, key, value string) error {
	setting := models.AppSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
