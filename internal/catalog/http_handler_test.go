package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"locallibrary/internal/auth"
	"locallibrary/internal/httpx"
	"locallibrary/internal/platform/weather"
	"locallibrary/internal/visit"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type indexBody struct {
	Data struct {
		NumBooks     int             `json:"num_books"`
		NumAvailable int             `json:"num_instances_available"`
		NumVisits    int             `json:"num_visits"`
		Weather      *weather.Report `json:"weather"`
	} `json:"data"`
}

func TestHTTPHandler_Index(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	mockVisits := NewMockVisitCounter(ctrl)
	mockWeather := NewMockWeatherSource(ctrl)

	summary := Summary{Books: 3, Instances: 4, InstancesAvailable: 2}
	session := visit.Session{ID: "s1"}

	newRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(visit.WithSession(r.Context(), session))
	}

	t.Run("counts, visits and weather", func(t *testing.T) {
		handler := NewHTTPHandler(NewService(mockRepo), mockVisits, mockWeather)
		mockRepo.EXPECT().Counts(gomock.Any()).Return(summary, nil)
		mockVisits.EXPECT().Count(gomock.Any(), "s1").Return(7, nil)
		mockWeather.EXPECT().Current(gomock.Any()).Return(weather.Report{TemperatureC: 12, Description: "Rain"}, nil)

		w := httptest.NewRecorder()
		handler.Index(w, newRequest())

		require.Equal(t, http.StatusOK, w.Code)
		var body indexBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, 3, body.Data.NumBooks)
		assert.Equal(t, 2, body.Data.NumAvailable)
		assert.Equal(t, 7, body.Data.NumVisits)
		require.NotNil(t, body.Data.Weather)
		assert.Equal(t, "Rain", body.Data.Weather.Description)
	})

	t.Run("weather failure degrades the page", func(t *testing.T) {
		handler := NewHTTPHandler(NewService(mockRepo), mockVisits, mockWeather)
		mockRepo.EXPECT().Counts(gomock.Any()).Return(summary, nil)
		mockVisits.EXPECT().Count(gomock.Any(), "s1").Return(0, nil)
		mockWeather.EXPECT().Current(gomock.Any()).Return(weather.Report{}, weather.ErrUnavailable)

		w := httptest.NewRecorder()
		handler.Index(w, newRequest())

		require.Equal(t, http.StatusOK, w.Code)
		var body indexBody
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Nil(t, body.Data.Weather)
		assert.Equal(t, 3, body.Data.NumBooks)
	})

	t.Run("weather not configured", func(t *testing.T) {
		handler := NewHTTPHandler(NewService(mockRepo), mockVisits, nil)
		mockRepo.EXPECT().Counts(gomock.Any()).Return(summary, nil)
		mockVisits.EXPECT().Count(gomock.Any(), "s1").Return(1, nil)

		w := httptest.NewRecorder()
		handler.Index(w, newRequest())

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("store failure is fatal", func(t *testing.T) {
		handler := NewHTTPHandler(NewService(mockRepo), mockVisits, mockWeather)
		mockRepo.EXPECT().Counts(gomock.Any()).Return(Summary{}, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		handler.Index(w, newRequest())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("session store failure is fatal", func(t *testing.T) {
		handler := NewHTTPHandler(NewService(mockRepo), mockVisits, mockWeather)
		mockRepo.EXPECT().Counts(gomock.Any()).Return(summary, nil)
		mockVisits.EXPECT().Count(gomock.Any(), "s1").Return(0, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		handler.Index(w, newRequest())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_ListBooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo), nil, nil)

	tests := []struct {
		name           string
		query          string
		setupMock      func()
		expectedStatus int
	}{
		{
			name:  "first page",
			query: "",
			setupMock: func() {
				mockRepo.EXPECT().ListBooks(gomock.Any(), PageSize, 0).Return([]Book{{ID: bookID, Title: "Dune"}}, 1, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "second page",
			query: "?page=2",
			setupMock: func() {
				mockRepo.EXPECT().ListBooks(gomock.Any(), PageSize, PageSize).Return(nil, 11, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "server error",
			query: "",
			setupMock: func() {
				mockRepo.EXPECT().ListBooks(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, 0, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/catalog/books"+tt.query, nil)

			handler.ListBooks(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHTTPHandler_ListBooks_Meta(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo), nil, nil)
	mockRepo.EXPECT().ListBooks(gomock.Any(), PageSize, PageSize).Return(nil, 11, nil)

	w := httptest.NewRecorder()
	handler.ListBooks(w, httptest.NewRequest(http.MethodGet, "/catalog/books?page=2", nil))

	var body struct {
		Data []Book        `json:"data"`
		Meta map[string]int `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotNil(t, body.Data)
	assert.Equal(t, 2, body.Meta["total_pages"])
	assert.Equal(t, PageSize, body.Meta["page_size"])
}

func TestHTTPHandler_GetBook(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo), nil, nil)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().GetBook(gomock.Any(), bookID).Return(Book{ID: bookID}, nil)
		mockRepo.EXPECT().ListInstances(gomock.Any(), InstanceFilter{BookID: bookID}, 0, 0).Return(nil, 0, nil)

		w := httptest.NewRecorder()
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/catalog/book/"+bookID, nil), "id", bookID)
		handler.GetBook(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().GetBook(gomock.Any(), "nope").Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/catalog/book/nope", nil), "id", "nope")
		handler.GetBook(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHTTPHandler_GetAuthor_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo), nil, nil)
	mockRepo.EXPECT().GetAuthor(gomock.Any(), authorID).Return(Author{}, ErrNotFound)

	w := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodGet, "/catalog/author/"+authorID, nil), "id", authorID)
	handler.GetAuthor(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_ListMyLoans(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo), nil, nil)

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListMyLoans(w, httptest.NewRequest(http.MethodGet, "/catalog/mybooks", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("lists the caller's loans", func(t *testing.T) {
		mockRepo.EXPECT().
			ListInstances(gomock.Any(), InstanceFilter{BorrowerID: userID, Status: StatusOnLoan}, PageSize, 0).
			Return([]BookInstance{
				{ID: "i1", Status: StatusOnLoan, DueBack: NewDate(time.Now().AddDate(0, 0, -3))},
				{ID: "i2", Status: StatusOnLoan, DueBack: NewDate(time.Now().AddDate(0, 0, 7))},
			}, 2, nil)

		r := httptest.NewRequest(http.MethodGet, "/catalog/mybooks", nil)
		r = r.WithContext(httpx.WithCaller(r.Context(), auth.Caller{UserID: userID}))
		w := httptest.NewRecorder()
		handler.ListMyLoans(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data []struct {
				ID      string `json:"id"`
				Overdue bool   `json:"overdue"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Len(t, body.Data, 2)
		assert.True(t, body.Data[0].Overdue)
		assert.False(t, body.Data[1].Overdue)
	})

	t.Run("no loans renders an empty list", func(t *testing.T) {
		mockRepo.EXPECT().
			ListInstances(gomock.Any(), InstanceFilter{BorrowerID: userID, Status: StatusOnLoan}, PageSize, 0).
			Return(nil, 0, nil)

		r := httptest.NewRequest(http.MethodGet, "/catalog/mybooks", nil)
		r = r.WithContext(httpx.WithCaller(r.Context(), auth.Caller{UserID: userID}))
		w := httptest.NewRecorder()
		handler.ListMyLoans(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestHTTPHandler_ReferenceLists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo), nil, nil)

	mockRepo.EXPECT().ListGenres(gomock.Any()).Return([]Genre{{ID: "g1", Name: "Fantasy"}}, nil)
	mockRepo.EXPECT().ListLanguages(gomock.Any()).Return(nil, context.Canceled)

	w := httptest.NewRecorder()
	handler.ListGenres(w, httptest.NewRequest(http.MethodGet, "/catalog/genres", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ListLanguages(w, httptest.NewRequest(http.MethodGet, "/catalog/languages", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
