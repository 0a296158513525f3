package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

type AddressUsecase struct {
	addresses repo.AddressRepository
}

func NewAddressUsecase(addresses repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

type AddressInput struct {
	Label      string `json:"label"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

func (in *AddressInput) validate() error {
	if strings.TrimSpace(in.Line1) == "" {
		return NewHTTPError(http.StatusBadRequest, "line1 required")
	}
	if strings.TrimSpace(in.City) == "" {
		return NewHTTPError(http.StatusBadRequest, "city required")
	}
	if strings.TrimSpace(in.Country) == "" {
		return NewHTTPError(http.StatusBadRequest, "country required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return NewHTTPError(http.StatusBadRequest, "postal_code required")
	}
	return nil
}

func (u *AddressUsecase) CreateAddress(ctx context.Context, userID int64, in AddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return model.Address{}, err
	}

	now := time.Now()
	a, err := u.addresses.Create(ctx, model.Address{
		UserID:     userID,
		Label:      strings.TrimSpace(in.Label),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		Country:    strings.TrimSpace(in.Country),
		PostalCode: strings.TrimSpace(in.PostalCode),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//最初の1件、またはis_default指定時はデフォルトに
	if in.IsDefault || u.isFirstAddress(ctx, userID, a.ID) {
		if err := u.addresses.SetDefault(ctx, userID, a.ID); err != nil {
			return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		a.IsDefault = true
	}
	return a, nil
}

func (u *AddressUsecase) isFirstAddress(ctx context.Context, userID int64, addressID int64) bool {
	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return false
	}
	return len(list) == 1 && list[0].ID == addressID
}

func (u *AddressUsecase) ListAddresses(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return list, nil
}

// 所有チェック付きで1件取得。他人の住所は404。
func (u *AddressUsecase) findOwned(ctx context.Context, userID int64, addressID int64) (model.Address, error) {
	a, err := u.addresses.FindByID(ctx, addressID)
	if err == repo.ErrNotFound {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if a.UserID != userID {
		return model.Address{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	return a, nil
}

func (u *AddressUsecase) UpdateAddress(ctx context.Context, userID int64, addressID int64, in AddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := in.validate(); err != nil {
		return model.Address{}, err
	}

	a, err := u.findOwned(ctx, userID, addressID)
	if err != nil {
		return model.Address{}, err
	}

	a.Label = strings.TrimSpace(in.Label)
	a.Line1 = strings.TrimSpace(in.Line1)
	a.Line2 = strings.TrimSpace(in.Line2)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.Country = strings.TrimSpace(in.Country)
	a.PostalCode = strings.TrimSpace(in.PostalCode)
	a.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, a); err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.IsDefault && !a.IsDefault {
		if err := u.addresses.SetDefault(ctx, userID, a.ID); err != nil {
			return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		a.IsDefault = true
	}
	return a, nil
}

func (u *AddressUsecase) DeleteAddress(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := u.findOwned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.Delete(ctx, addressID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *AddressUsecase) SetDefaultAddress(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := u.findOwned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
