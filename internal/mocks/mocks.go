package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) GetOrCreate(ctx context.Context, teacherID, counterpartyID, childID int64, encrypted bool) (models.Conversation, error) {
	args := m.Called(ctx, teacherID, counterpartyID, childID, encrypted)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, accountID int64) (bool, error) {
	args := m.Called(ctx, conversationID, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) List(ctx context.Context, viewerID int64, filter string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, viewerID, filter)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) Archive(ctx context.Context, conversationID int64) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, viewerID int64) error {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, conversationID int64, msg repositories.NewMessage) (models.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID int64) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ChildMessageRepositoryMock struct {
	mock.Mock
}

func (m *ChildMessageRepositoryMock) Create(ctx context.Context, entry models.ChildMessage) (models.ChildMessage, error) {
	args := m.Called(ctx, entry)
	var stored models.ChildMessage
	if val := args.Get(0); val != nil {
		stored = val.(models.ChildMessage)
	}
	return stored, args.Error(1)
}

func (m *ChildMessageRepositoryMock) ListForGuardian(ctx context.Context, childID, guardianID int64) ([]models.ChildMessage, error) {
	args := m.Called(ctx, childID, guardianID)
	var entries []models.ChildMessage
	if val := args.Get(0); val != nil {
		entries = val.([]models.ChildMessage)
	}
	return entries, args.Error(1)
}

func (m *ChildMessageRepositoryMock) Acknowledge(ctx context.Context, childMessageID, guardianID int64) error {
	args := m.Called(ctx, childMessageID, guardianID)
	return args.Error(0)
}

type DirectoryRepositoryMock struct {
	mock.Mock
}

func (m *DirectoryRepositoryMock) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	args := m.Called(ctx, accountID)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *DirectoryRepositoryMock) IsGuardian(ctx context.Context, parentID, childID int64) (bool, error) {
	args := m.Called(ctx, parentID, childID)
	return args.Bool(0), args.Error(1)
}

func (m *DirectoryRepositoryMock) Teaches(ctx context.Context, teacherID, childID int64) (bool, error) {
	args := m.Called(ctx, teacherID, childID)
	return args.Bool(0), args.Error(1)
}

func (m *DirectoryRepositoryMock) GuardiansOf(ctx context.Context, childID int64) ([]int64, error) {
	args := m.Called(ctx, childID)
	var guardians []int64
	if val := args.Get(0); val != nil {
		guardians = val.([]int64)
	}
	return guardians, args.Error(1)
}

type OfficeHoursRepositoryMock struct {
	mock.Mock
}

func (m *OfficeHoursRepositoryMock) WindowsFor(ctx context.Context, teacherID int64) ([]models.OfficeHoursWindow, error) {
	args := m.Called(ctx, teacherID)
	var windows []models.OfficeHoursWindow
	if val := args.Get(0); val != nil {
		windows = val.([]models.OfficeHoursWindow)
	}
	return windows, args.Error(1)
}

func (m *OfficeHoursRepositoryMock) Replace(ctx context.Context, teacherID int64, windows []models.OfficeHoursWindow) error {
	args := m.Called(ctx, teacherID, windows)
	return args.Error(0)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ChildMessageRepository = (*ChildMessageRepositoryMock)(nil)
var _ repositories.DirectoryRepository = (*DirectoryRepositoryMock)(nil)
var _ repositories.OfficeHoursRepository = (*OfficeHoursRepositoryMock)(nil)
