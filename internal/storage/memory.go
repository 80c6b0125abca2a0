package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// MemoryStore holds all data in memory for tests and local runs
type MemoryStore struct {
	messages     []*models.Message
	appointments map[string]*models.Appointment
	settings     map[string]string

	// Mutexes for thread safety
	messageMu     sync.RWMutex
	appointmentMu sync.RWMutex
	settingMu     sync.RWMutex

	// Counters for ID generation
	messageCounter     uint
	appointmentCounter int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: make(map[string]*models.Appointment),
		settings:     make(map[string]string),
	}
}

// Message operations
func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) (uint, error) {
	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	m.messageCounter++
	stored := *msg
	stored.ID = m.messageCounter
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	m.messages = append(m.messages, &stored)
	msg.ID = stored.ID
	msg.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

func (m *MemoryStore) GetMessagesByParticipant(ctx context.Context, identifier string, limit int) ([]*models.Message, error) {
	suffix := utils.Suffix(identifier)
	if suffix == "" {
		return nil, nil
	}

	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	var matched []*models.Message
	for _, msg := range m.messages {
		if utils.SameParticipant(msg.FromPhone, suffix) || utils.SameParticipant(msg.ToPhone, suffix) {
			copied := *msg
			matched = append(matched, &copied)
		}
	}
	sortMessages(matched)

	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (m *MemoryStore) GetMessages(ctx context.Context, contact string) ([]*models.Message, error) {
	contact = strings.TrimSpace(contact)

	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	messages := make([]*models.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		if contact != "" && !strings.Contains(msg.FromPhone, contact) && !strings.Contains(msg.ToPhone, contact) {
			continue
		}
		copied := *msg
		messages = append(messages, &copied)
	}
	sortMessages(messages)
	return messages, nil
}

func sortMessages(messages []*models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

// Appointment operations
func (m *MemoryStore) CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	stored := *appointment
	if stored.ID == "" {
		m.appointmentCounter++
		stored.ID = fmt.Sprintf("APT%05d", m.appointmentCounter)
	}
	if _, exists := m.appointments[stored.ID]; exists {
		return nil, fmt.Errorf("appointment %s already exists", stored.ID)
	}
	if stored.Status == "" {
		stored.Status = models.AppointmentStatusPending
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.appointments[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *MemoryStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	appointment, exists := m.appointments[id]
	if !exists {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	copied := *appointment
	return &copied, nil
}

func (m *MemoryStore) GetUpcomingAppointments(ctx context.Context, statuses []string, fromDate string) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var appointments []*models.Appointment
	for _, a := range m.appointments {
		if a.AppointmentDate < fromDate || !containsString(statuses, a.Status) {
			continue
		}
		copied := *a
		appointments = append(appointments, &copied)
	}
	sortAppointments(appointments)
	return appointments, nil
}

func (m *MemoryStore) GetAppointmentsByPhone(ctx context.Context, phone string) ([]*models.Appointment, error) {
	suffix := utils.Suffix(phone)
	if suffix == "" {
		return nil, nil
	}

	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var appointments []*models.Appointment
	for _, a := range m.appointments {
		if !utils.SameParticipant(a.ContactPhone, suffix) {
			continue
		}
		copied := *a
		appointments = append(appointments, &copied)
	}
	sortAppointments(appointments)
	return appointments, nil
}

func (m *MemoryStore) MarkReminderSent(ctx context.Context, appointmentID string, kind models.ReminderKind, at time.Time) (bool, error) {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	appointment, exists := m.appointments[appointmentID]
	if !exists {
		return false, fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	marker := ReminderMarker(appointment, kind)
	if marker == nil {
		return false, fmt.Errorf("unknown reminder kind %q", kind)
	}
	if *marker != nil {
		return false, nil
	}

	sentAt := at
	*marker = &sentAt
	appointment.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryStore) ReleaseReminder(ctx context.Context, appointmentID string, kind models.ReminderKind) error {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	appointment, exists := m.appointments[appointmentID]
	if !exists {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	marker := ReminderMarker(appointment, kind)
	if marker == nil {
		return fmt.Errorf("unknown reminder kind %q", kind)
	}
	*marker = nil
	appointment.UpdatedAt = time.Now()
	return nil
}

func sortAppointments(appointments []*models.Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		a, b := appointments[i], appointments[j]
		if a.AppointmentDate != b.AppointmentDate {
			return a.AppointmentDate < b.AppointmentDate
		}
		if a.AppointmentTime != b.AppointmentTime {
			return a.AppointmentTime < b.AppointmentTime
		}
		return a.ID < b.ID
	})
}

// Settings operations
func (m *MemoryStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.settingMu.RLock()
	defer m.settingMu.RUnlock()

	return m.settings[key], nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.settingMu.Lock()
	defer m.settingMu.Unlock()

	m.settings[key] = value
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
