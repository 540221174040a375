package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/internal/notifications"
	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/returns"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	pkgauth "github.com/mfigueredo/vendora-backend/pkg/auth"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) ChangeStatus(ctx context.Context, input orders.ChangeStatusInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) RequestCancellation(ctx context.Context, input orders.RequestCancellationInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, ref orders.OrderRef, actor orders.ActorContext) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListByCustomer(ctx context.Context, customerID uuid.UUID, input orders.ListInput) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []models.Order{}}, nil
}

func (stubOrdersService) ListByVendor(ctx context.Context, vendorID uuid.UUID, input orders.ListInput) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []models.Order{}}, nil
}

type stubWalletService struct{}

func (stubWalletService) Credit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) CreditPending(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) ReleasePending(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) ReleasePendingOrCredit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) Debit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) DebitPendingOrBalance(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) CreditTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) CreditPendingTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) ReleasePendingTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) ReleasePendingOrCreditTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) DebitTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) DebitPendingOrBalanceTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) GetBalance(ctx context.Context, vendorID uuid.UUID) (*wallet.BalanceSummary, error) {
	return &wallet.BalanceSummary{VendorID: vendorID}, nil
}

func (stubWalletService) ListTransactions(ctx context.Context, input wallet.ListTransactionsInput) (*wallet.TransactionList, error) {
	return &wallet.TransactionList{}, nil
}

func (stubWalletService) RequestWithdrawal(ctx context.Context, vendorID uuid.UUID) (*models.WithdrawalRequest, error) {
	panic("unimplemented")
}

func (stubWalletService) ApproveWithdrawal(ctx context.Context, input wallet.ResolveWithdrawalInput) (*models.WithdrawalRequest, error) {
	panic("unimplemented")
}

func (stubWalletService) RejectWithdrawal(ctx context.Context, input wallet.ResolveWithdrawalInput) (*models.WithdrawalRequest, error) {
	panic("unimplemented")
}

func (stubWalletService) ListWithdrawals(ctx context.Context, input wallet.ListWithdrawalsInput) (*wallet.WithdrawalList, error) {
	return &wallet.WithdrawalList{}, nil
}

type stubReturnsService struct{}

func (stubReturnsService) CreateReturnRequest(ctx context.Context, input returns.CreateReturnInput) (*models.ReturnRequest, error) {
	panic("unimplemented")
}

func (stubReturnsService) ProcessRefund(ctx context.Context, requestID uuid.UUID, actor returns.ActorContext) (*models.ReturnRequest, error) {
	panic("unimplemented")
}

func (stubReturnsService) UpdateStatus(ctx context.Context, input returns.UpdateStatusInput) (*models.ReturnRequest, error) {
	panic("unimplemented")
}

func (stubReturnsService) Get(ctx context.Context, id uuid.UUID, actor returns.ActorContext) (*models.ReturnRequest, error) {
	panic("unimplemented")
}

func (stubReturnsService) List(ctx context.Context, input returns.ListInput) (*returns.ReturnList, error) {
	return &returns.ReturnList{Returns: []models.ReturnRequest{}}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, recipient notifications.Recipient, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, recipient notifications.Recipient) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		DBPinger:      stubPinger{},
		Orders:        stubOrdersService{},
		Wallet:        stubWalletService{},
		Returns:       stubReturnsService{},
		Notifications: stubNotificationsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		VendorID: vendorID,
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCustomerCanListOwnOrders(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleUser, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWalletRequiresVendorAccount(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asUser := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/", nil)
	asUser.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleUser, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asUser)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-vendor got %d", resp.Code)
	}

	vendorID := uuid.New()
	asVendor := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/", nil)
	asVendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor, &vendorID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asVendor)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/returns/", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleUser, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/returns/", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}
