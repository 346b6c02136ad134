package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kitchen-orders/internal/cache"
	"kitchen-orders/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClientService_GetByPhone(t *testing.T) {
	homer := &model.Client{Phone: "1155550000", Name: "Homer", Surname: "Simpson"}

	tests := []struct {
		name        string
		phone       string
		mockReturn  *model.Client
		mockError   error
		expectKind  model.ErrorKind
		expectCache bool
	}{
		{name: "Known client is cached", phone: "1155550000", mockReturn: homer, expectCache: true},
		{name: "Surrounding spaces are ignored", phone: " 1155550000 ", mockReturn: homer, expectCache: true},
		{name: "Unknown client", phone: "1155550000", expectKind: model.KindNotFound},
		{name: "Repository error", phone: "1155550000", mockError: errors.New("database error"), expectKind: model.KindInternal},
		{name: "Malformed phone", phone: "not-a-phone", expectKind: model.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, store := setupCache(t)
			clients := new(MockClientRepository)
			svc := NewClientService(clients, store, time.Minute, zerolog.Nop())

			clients.On("GetByPhone", mock.Anything, "1155550000").Return(tt.mockReturn, tt.mockError).Maybe()

			client, err := svc.GetByPhone(context.Background(), tt.phone)

			if tt.expectKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectKind, model.KindOf(err))
				assert.Nil(t, client)
				assert.False(t, mr.Exists(cache.ClientKey("1155550000")))
				if tt.expectKind == model.KindValidation {
					assert.Empty(t, clients.Calls)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Homer", client.Name)
			assert.Equal(t, tt.expectCache, mr.Exists(cache.ClientKey("1155550000")))

			_, err = svc.GetByPhone(context.Background(), tt.phone)
			require.NoError(t, err)
			clients.AssertNumberOfCalls(t, "GetByPhone", 1)
		})
	}
}

func TestClientService_NotFoundCode(t *testing.T) {
	_, store := setupCache(t)
	clients := new(MockClientRepository)
	svc := NewClientService(clients, store, time.Minute, zerolog.Nop())

	clients.On("GetByPhone", mock.Anything, "1155550000").Return(nil, nil)

	_, err := svc.GetByPhone(context.Background(), "1155550000")

	assert.True(t, errors.Is(err, model.ErrClientNotFound))
}
