package storage

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
)

func newSQLiteStore(t *testing.T) *DatabaseStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewDatabaseStore(db)
	require.NoError(t, store.Migrate())
	return store
}

// forEachStore runs the same contract against both implementations
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("database", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func appendAt(t *testing.T, s Store, from, to, body string, at time.Time) uint {
	t.Helper()
	id, err := s.AppendMessage(context.Background(), &models.Message{
		FromPhone: from,
		ToPhone:   to,
		Body:      body,
		Direction: models.DirectionInbound,
		CreatedAt: at,
	})
	require.NoError(t, err)
	return id
}

func TestAppendMessageAssignsIncreasingIDs(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		first := appendAt(t, s, "212612345678", "212600000001", "one", base)
		second := appendAt(t, s, "212612345678", "212600000001", "two", base.Add(time.Second))
		assert.NotZero(t, first)
		assert.Greater(t, second, first)
	})
}

func TestGetMessagesByParticipantMatchesSuffix(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		appendAt(t, s, "212612345678", "212600000001", "first", base)
		appendAt(t, s, "212600000001", "0612345678", "second", base.Add(time.Minute))
		appendAt(t, s, "212699999999", "212600000001", "other", base.Add(2*time.Minute))
		appendAt(t, s, "+212612345678", "212600000001", "third", base.Add(3*time.Minute))

		all, err := s.GetMessagesByParticipant(ctx, "+212 612 345 678", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "first", all[0].Body)
		assert.Equal(t, "second", all[1].Body)
		assert.Equal(t, "third", all[2].Body)

		last, err := s.GetMessagesByParticipant(ctx, "0612345678", 2)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, "second", last[0].Body)
		assert.Equal(t, "third", last[1].Body)

		none, err := s.GetMessagesByParticipant(ctx, "", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestGetMessagesByParticipantAnchorsSuffix(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		appendAt(t, s, "61234567800", "212600000001", "digits inside", base)
		appendAt(t, s, "2126123456789", "212600000001", "one digit longer", base.Add(time.Minute))
		appendAt(t, s, "12345", "212600000001", "short", base.Add(2*time.Minute))
		appendAt(t, s, "912345", "212600000001", "short with prefix", base.Add(3*time.Minute))

		got, err := s.GetMessagesByParticipant(ctx, "0612345678", 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.GetMessagesByParticipant(ctx, "012345", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "short", got[0].Body)
	})
}

func TestGetMessagesByParticipantGroupHandle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		appendAt(t, s, "120363421754134116@g.us", "212600000001", "group", base)
		appendAt(t, s, "212612345678", "212600000001", "direct", base.Add(time.Minute))

		msgs, err := s.GetMessagesByParticipant(context.Background(), "120363421754134116@g.us", 10)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "group", msgs[0].Body)
	})
}

func TestGetMessagesOperatorView(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		appendAt(t, s, "212612345678", "212600000001", "a", base.Add(time.Minute))
		appendAt(t, s, "212699999999", "212600000001", "b", base)

		all, err := s.GetMessages(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "b", all[0].Body)

		filtered, err := s.GetMessages(ctx, "612345678")
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "a", filtered[0].Body)
	})
}

func TestMarkReminderSentClaimsOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		created, err := s.CreateAppointment(ctx, &models.Appointment{
			ID:              "APT-1",
			ContactPhone:    "0612345678",
			AppointmentDate: "2026-03-02",
			AppointmentTime: "10:00",
		})
		require.NoError(t, err)
		assert.Equal(t, models.AppointmentStatusPending, created.Status)

		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		claimed, err := s.MarkReminderSent(ctx, "APT-1", models.Reminder1Day, at)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = s.MarkReminderSent(ctx, "APT-1", models.Reminder1Day, at.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, claimed)

		// other kinds keep their own marker
		claimed, err = s.MarkReminderSent(ctx, "APT-1", models.ReminderEmail, at)
		require.NoError(t, err)
		assert.True(t, claimed)

		got, err := s.GetAppointment(ctx, "APT-1")
		require.NoError(t, err)
		require.NotNil(t, got.Reminder1DaySentAt)
		assert.True(t, got.Reminder1DaySentAt.Equal(at))
		assert.NotNil(t, got.EmailReminderSentAt)
		assert.Nil(t, got.Reminder1HourSentAt)
		assert.Nil(t, got.ConfirmationSentAt)
	})
}

func TestMarkReminderSentUnknownAppointment(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.MarkReminderSent(context.Background(), "missing", models.Reminder1Hour, time.Now())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetAppointment(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetUpcomingAppointmentsFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, a := range []*models.Appointment{
			{ID: "past", AppointmentDate: "2026-02-28", AppointmentTime: "10:00", Status: models.AppointmentStatusConfirmed},
			{ID: "later", AppointmentDate: "2026-03-05", AppointmentTime: "09:00", Status: models.AppointmentStatusPaid},
			{ID: "today", AppointmentDate: "2026-03-01", AppointmentTime: "15:30", Status: models.AppointmentStatusPending},
			{ID: "cancelled", AppointmentDate: "2026-03-02", AppointmentTime: "10:00", Status: models.AppointmentStatusCancelled},
		} {
			_, err := s.CreateAppointment(ctx, a)
			require.NoError(t, err)
		}

		got, err := s.GetUpcomingAppointments(ctx, models.ActiveAppointmentStatuses, "2026-03-01")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "today", got[0].ID)
		assert.Equal(t, "later", got[1].ID)
	})
}

func TestGetAppointmentsByPhone(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateAppointment(ctx, &models.Appointment{ID: "mine", ContactPhone: "212612345678", AppointmentDate: "2026-03-05", AppointmentTime: "09:00"})
		require.NoError(t, err)
		_, err = s.CreateAppointment(ctx, &models.Appointment{ID: "theirs", ContactPhone: "212699999999", AppointmentDate: "2026-03-05", AppointmentTime: "09:00"})
		require.NoError(t, err)

		got, err := s.GetAppointmentsByPhone(ctx, "0612345678")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "mine", got[0].ID)
	})
}

func TestGetAppointmentsByPhoneNormalizesStoredNumber(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateAppointment(ctx, &models.Appointment{ID: "formatted", ContactPhone: "+212 (612) 345-678", AppointmentDate: "2026-03-05", AppointmentTime: "09:00"})
		require.NoError(t, err)
		_, err = s.CreateAppointment(ctx, &models.Appointment{ID: "inner", ContactPhone: "612345678900", AppointmentDate: "2026-03-05", AppointmentTime: "10:00"})
		require.NoError(t, err)
		_, err = s.CreateAppointment(ctx, &models.Appointment{ID: "nophone", AppointmentDate: "2026-03-05", AppointmentTime: "11:00"})
		require.NoError(t, err)

		got, err := s.GetAppointmentsByPhone(ctx, "0612345678")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "formatted", got[0].ID)
	})
}

func TestReleaseReminder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateAppointment(ctx, &models.Appointment{ID: "APT-1", ContactPhone: "0612345678", AppointmentDate: "2026-03-02", AppointmentTime: "10:00"})
		require.NoError(t, err)

		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for _, kind := range []models.ReminderKind{models.Reminder1Day, models.ReminderEmail} {
			claimed, err := s.MarkReminderSent(ctx, "APT-1", kind, at)
			require.NoError(t, err)
			require.True(t, claimed)
		}

		require.NoError(t, s.ReleaseReminder(ctx, "APT-1", models.Reminder1Day))
		got, err := s.GetAppointment(ctx, "APT-1")
		require.NoError(t, err)
		assert.Nil(t, got.Reminder1DaySentAt)
		assert.NotNil(t, got.EmailReminderSentAt)

		claimed, err := s.MarkReminderSent(ctx, "APT-1", models.Reminder1Day, at.Add(5*time.Minute))
		require.NoError(t, err)
		assert.True(t, claimed)

		assert.ErrorIs(t, s.ReleaseReminder(ctx, "missing", models.Reminder1Day), ErrNotFound)
		assert.Error(t, s.ReleaseReminder(ctx, "APT-1", models.ReminderKind("weekly")))
	})
}

func TestSettings(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		value, err := s.GetSetting(ctx, models.SettingBlockedNumbers)
		require.NoError(t, err)
		assert.Empty(t, value)

		require.NoError(t, s.SetSetting(ctx, models.SettingBlockedNumbers, `["212612345678"]`))
		require.NoError(t, s.SetSetting(ctx, models.SettingBlockedNumbers, `["212699999999"]`))

		value, err = s.GetSetting(ctx, models.SettingBlockedNumbers)
		require.NoError(t, err)
		assert.Equal(t, `["212699999999"]`, value)
	})
}

func TestMemoryStoreConcurrentClaims(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateAppointment(ctx, &models.Appointment{ID: "APT-1", AppointmentDate: "2026-03-02", AppointmentTime: "10:00"})
	require.NoError(t, err)

	var claims int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkReminderSent(ctx, "APT-1", models.Reminder1Hour, time.Now())
			if err == nil && ok {
				atomic.AddInt32(&claims, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), claims)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AppendMessage(context.Background(), &models.Message{FromPhone: "212612345678", ToPhone: "1", Body: "x", Direction: models.DirectionInbound})
		}()
	}
	wg.Wait()

	msgs, err := s.GetMessages(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, msgs, 50)
}
