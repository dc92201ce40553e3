package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/model"
)

func TestUpdateUserRole(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.users)
	ctx := context.Background()

	_, err := users.UpdateUserRole(ctx, f.owner.UserID, &UpdateRoleRequest{Role: "staff"}, f.staff)
	assert.Equal(t, apperror.KindAuthorization, apperror.KindOf(err))

	resp, err := users.UpdateUserRole(ctx, f.staff.UserID, &UpdateRoleRequest{Role: " Owner "}, f.owner)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, resp.Role)

	_, err = users.UpdateUserRole(ctx, f.owner.UserID, &UpdateRoleRequest{Role: "staff"}, f.owner)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = users.UpdateUserRole(ctx, uuid.New(), &UpdateRoleRequest{Role: "staff"}, f.owner)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDeleteUser_KeepsSalesWithoutAuthor(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.users)
	ctx := context.Background()

	p := f.createProduct(t, "Lamp", 5, "20")
	sale, err := f.sales.RecordSale(ctx, &RecordSaleRequest{
		ProductID:    p.ID,
		QuantitySold: 1,
		SalePrice:    money("20"),
	}, f.staff)
	require.NoError(t, err)

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(users.DeleteUser(ctx, f.owner.UserID, f.owner)))
	require.NoError(t, users.DeleteUser(ctx, f.staff.UserID, f.owner))

	var stored model.Sale
	require.NoError(t, f.db.First(&stored, "id = ?", sale.ID).Error)
	assert.Nil(t, stored.CreatedByID)

	all, err := users.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "owner", all[0].Username)

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(users.DeleteUser(ctx, f.staff.UserID, f.owner)))
}
