package service

import (
	"fmt"
	"testing"
	"time"

	"dm-service/dto"
	"dm-service/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Chat{},
		&model.Dialog{},
		&model.Message{},
		&model.Image{},
	))

	return db
}

func newTestServices(t *testing.T) (*gorm.DB, *MessageService, *DialogService) {
	t.Helper()

	db := newTestDB(t)
	messages := NewMessageService(db)
	dialogs := NewDialogService(db, messages)
	return db, messages, dialogs
}

func createUser(t *testing.T, db *gorm.DB, username string) model.User {
	t.Helper()

	user := model.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "secret",
		Role:       "user",
		Status:     model.StatusOffline,
		IsVerified: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// createPair creates two users with a dialog pair between them and returns
// the users plus the first user's dialog view.
func createPair(t *testing.T, db *gorm.DB, dialogs *DialogService) (model.User, model.User, *dto.Dialog) {
	t.Helper()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	dialog, err := dialogs.Create(CreateDialogParams{
		UserID:    alice.ID,
		PartnerID: bob.ID,
	})
	require.NoError(t, err)

	return alice, bob, dialog
}

func sendText(t *testing.T, messages *MessageService, userID, chatID uint, text string, at time.Time) uint {
	t.Helper()

	message, err := messages.Send(SendParams{
		UserID: userID,
		ChatID: chatID,
		Message: MessageInput{
			Text:      &text,
			CreatedAt: &at,
		},
	})
	require.NoError(t, err)
	return message.Id
}

// seedHistory sends n alternating messages a minute apart and returns their
// ids in send order.
func seedHistory(t *testing.T, messages *MessageService, aliceID, bobID, chatID uint, n int) []uint {
	t.Helper()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		author := aliceID
		if i%2 == 1 {
			author = bobID
		}
		id := sendText(t, messages, author, chatID, fmt.Sprintf("message %d", i+1), base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, id)
	}
	return ids
}
