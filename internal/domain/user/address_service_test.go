package user_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fankick/storefront/internal/domain/user"
	"github.com/fankick/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressRequest(name string) *user.CreateAddressRequest {
	return &user.CreateAddressRequest{
		FullName:   name,
		Phone:      "+91 98765 43210",
		Line1:      "12 Stadium Road",
		City:       "Kolkata",
		State:      "West Bengal",
		PostalCode: "700001",
		Country:    "India",
	}
}

func TestAddressDefaults(t *testing.T) {
	svc := user.NewAddressService(testutil.NewDB(t), testutil.Config())
	ctx := context.Background()

	first, err := svc.CreateAddress(ctx, "u1", addressRequest("Home"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateAddress(ctx, "u1", addressRequest("Office"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	req := addressRequest("Parents")
	req.IsDefault = true
	third, err := svc.CreateAddress(ctx, "u1", req)
	require.NoError(t, err)

	addresses, err := svc.GetUserAddresses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, addresses, 3)
	assert.Equal(t, third.ID, addresses[0].ID)
	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	require.NoError(t, svc.DeleteAddress(ctx, "u1", third.ID))
	addresses, err = svc.GetUserAddresses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.True(t, addresses[0].IsDefault)

	others, err := svc.GetUserAddresses(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestAddressErrors(t *testing.T) {
	svc := user.NewAddressService(testutil.NewDB(t), testutil.Config())
	ctx := context.Background()

	_, err := svc.CreateAddress(ctx, "u1", addressRequest("  "))
	assert.ErrorIs(t, err, user.ErrInvalidAddress)

	created, err := svc.CreateAddress(ctx, "u1", addressRequest("Home"))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteAddress(ctx, "u2", created.ID), user.ErrAddressNotFound)

	for i := 1; i < 10; i++ {
		_, err := svc.CreateAddress(ctx, "u1", addressRequest(fmt.Sprintf("Address %d", i)))
		require.NoError(t, err)
	}
	_, err = svc.CreateAddress(ctx, "u1", addressRequest("One too many"))
	assert.ErrorIs(t, err, user.ErrAddressLimit)
}
