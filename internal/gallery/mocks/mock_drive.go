package mocks

import (
	"context"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/drive"

	"github.com/stretchr/testify/mock"
)

type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListImages(ctx context.Context, folderID string, pageSize int) ([]drive.File, error) {
	args := m.Called(ctx, folderID, pageSize)
	files, _ := args.Get(0).([]drive.File)
	return files, args.Error(1)
}

type MockGrantor struct {
	mock.Mock
}

func (m *MockGrantor) GrantLinkRead(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) CaptureDate(ctx context.Context, fileID string) (*time.Time, error) {
	args := m.Called(ctx, fileID)
	t, _ := args.Get(0).(*time.Time)
	return t, args.Error(1)
}
