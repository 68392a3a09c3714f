package services

import (
	"context"
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lavka/models"
)

func newNotifEnv() (*memStore, *stubDispatcher, *NotificationService) {
	store := newMemStore()
	dispatch := &stubDispatcher{}
	svc := &NotificationService{
		Store: store,
		Notifier: &Notifier{
			Dispatch:   dispatch,
			Store:      store,
			AdminChats: []int64{adminChatID},
		},
	}
	return store, dispatch, svc
}

func TestCreateSupportMessage(t *testing.T) {
	store, dispatch, svc := newNotifEnv()

	notif, outcomes, err := svc.CreateSupportMessage(context.Background(), 777, "alisher", "Где мой заказ?")
	require.NoError(t, err)

	assert.Equal(t, models.NotificationSupportMessage, notif.Type)
	assert.Equal(t, models.NotificationStatusPending, notif.Status)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Len(t, dispatch.sentTo(adminChatID), 1)

	stored, err := store.NotificationByID(context.Background(), notif.ID)
	require.NoError(t, err)

	var data models.SupportMessageData
	require.NoError(t, stored.DecodeData(&data))
	assert.Equal(t, int64(777), data.ChatID)
}

// Ответ на обращение уходит в исходный чат
func TestResolveSupportMessage(t *testing.T) {
	_, dispatch, svc := newNotifEnv()

	notif, _, err := svc.CreateSupportMessage(context.Background(), 777, "alisher", "Где мой заказ?")
	require.NoError(t, err)
	dispatch.sent = nil

	resolved, err := svc.Resolve(context.Background(), notif.ID, true, "Продавец уже подтвердил, ожидайте.")
	require.NoError(t, err)

	assert.Equal(t, models.NotificationStatusResponded, resolved.Status)
	require.Len(t, dispatch.sentTo(777), 1)
	assert.Contains(t, dispatch.sentTo(777)[0].Text, "Продавец уже подтвердил")
}

func TestResolveTwiceRejected(t *testing.T) {
	_, _, svc := newNotifEnv()

	notif, _, err := svc.CreateSupportMessage(context.Background(), 777, "", "вопрос")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), notif.ID, true, "ответ")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), notif.ID, true, "ответ")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

// Одобрение заявки продавца каскадно меняет пользователя
func TestResolveSellerApplication(t *testing.T) {
	store, dispatch, svc := newNotifEnv()

	userID := uuid.NewV4()
	notif := &models.AdminNotification{
		ID:      uuid.NewV4(),
		Type:    models.NotificationSellerApplication,
		Status:  models.NotificationStatusPending,
		Content: "Хочу продавать",
	}
	require.NoError(t, notif.SetData(models.SellerApplicationData{UserID: userID, ChatID: 555}))
	require.NoError(t, store.CreateNotification(context.Background(), notif))

	resolved, err := svc.Resolve(context.Background(), notif.ID, true, "")
	require.NoError(t, err)

	assert.Equal(t, models.NotificationStatusResponded, resolved.Status)
	assert.True(t, store.sellers[userID], "пользователь стал продавцом")
	assert.Len(t, dispatch.sentTo(555), 1)
}

// Одобрение товара выставляет ему флаг модерации
func TestResolveProductApproval(t *testing.T) {
	store, _, svc := newNotifEnv()

	product := &models.Product{ID: uuid.NewV4(), SellerID: uuid.NewV4()}
	store.products[product.ID] = product

	notif := &models.AdminNotification{
		ID:     uuid.NewV4(),
		Type:   models.NotificationProductApproval,
		Status: models.NotificationStatusPending,
	}
	require.NoError(t, notif.SetData(models.ProductApprovalData{ProductID: product.ID, SellerID: product.SellerID}))
	require.NoError(t, store.CreateNotification(context.Background(), notif))

	_, err := svc.Resolve(context.Background(), notif.ID, true, "")
	require.NoError(t, err)
	assert.True(t, store.products[product.ID].Approved)

	// Отклонение не одобряет товар
	store.products[product.ID].Approved = false
	notif2 := &models.AdminNotification{
		ID:     uuid.NewV4(),
		Type:   models.NotificationProductApproval,
		Status: models.NotificationStatusPending,
	}
	require.NoError(t, notif2.SetData(models.ProductApprovalData{ProductID: product.ID, SellerID: product.SellerID}))
	require.NoError(t, store.CreateNotification(context.Background(), notif2))

	resolved, err := svc.Resolve(context.Background(), notif2.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusRejected, resolved.Status)
	assert.False(t, store.products[product.ID].Approved)
}
