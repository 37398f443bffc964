package catalog

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bookID   = "0b1f7a1e-5c1d-4a55-9a38-1d7f3a2b9c01"
	authorID = "6f0f5e4b-2b8e-4b7a-8f2e-3f1c0e9d8a02"
	userID   = "a3c6f1d2-7e4b-4c2a-9d1f-5b8e7c6a4d03"
)

func TestService_Summary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	want := Summary{Books: 3, Instances: 5, InstancesAvailable: 2, Authors: 2, Genres: 4, Languages: 1}
	mockRepo.EXPECT().Counts(gomock.Any()).Return(want, nil)

	got, err := service.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_Summary_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	mockRepo.EXPECT().Counts(gomock.Any()).Return(Summary{}, context.DeadlineExceeded)

	_, err := NewService(mockRepo).Summary(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	tests := []struct {
		page       int
		wantOffset int
	}{
		{page: 0, wantOffset: 0},
		{page: 1, wantOffset: 0},
		{page: 3, wantOffset: 20},
	}

	for _, tt := range tests {
		mockRepo.EXPECT().ListBooks(gomock.Any(), PageSize, tt.wantOffset).Return(nil, 0, nil)
		_, _, err := service.ListBooks(context.Background(), tt.page)
		assert.NoError(t, err)

		mockRepo.EXPECT().ListAuthors(gomock.Any(), PageSize, tt.wantOffset).Return(nil, 0, nil)
		_, _, err = service.ListAuthors(context.Background(), tt.page)
		assert.NoError(t, err)
	}
}

func TestService_ListOnLoanTo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	t.Run("filters by borrower and on loan", func(t *testing.T) {
		loans := []BookInstance{{ID: "i1", Status: StatusOnLoan, BorrowerID: strPtr(userID)}}
		mockRepo.EXPECT().
			ListInstances(gomock.Any(), InstanceFilter{BorrowerID: userID, Status: StatusOnLoan}, PageSize, 0).
			Return(loans, 1, nil)

		got, total, err := service.ListOnLoanTo(context.Background(), userID, 1)

		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, loans, got)
	})

	t.Run("anonymous sees nothing", func(t *testing.T) {
		got, total, err := service.ListOnLoanTo(context.Background(), "", 1)

		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, got)
	})
}

func TestService_GetBook(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	t.Run("with copies", func(t *testing.T) {
		mockRepo.EXPECT().GetBook(gomock.Any(), bookID).Return(Book{ID: bookID, Title: "Dune"}, nil)
		mockRepo.EXPECT().ListInstances(gomock.Any(), InstanceFilter{BookID: bookID}, 0, 0).Return(nil, 0, nil)

		detail, err := service.GetBook(context.Background(), bookID)

		require.NoError(t, err)
		assert.Equal(t, "Dune", detail.Title)
		assert.NotNil(t, detail.Instances)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().GetBook(gomock.Any(), bookID).Return(Book{}, ErrNotFound)

		_, err := service.GetBook(context.Background(), bookID)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_GetAuthor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	service := NewService(mockRepo)

	mockRepo.EXPECT().GetAuthor(gomock.Any(), authorID).Return(Author{ID: authorID, FirstName: "Frank", LastName: "Herbert"}, nil)
	mockRepo.EXPECT().ListBooksByAuthor(gomock.Any(), authorID).Return([]Book{{ID: bookID}}, nil)

	detail, err := service.GetAuthor(context.Background(), authorID)

	require.NoError(t, err)
	assert.Equal(t, "Herbert, Frank", detail.Name())
	assert.Len(t, detail.Books, 1)
}

func strPtr(s string) *string { return &s }
