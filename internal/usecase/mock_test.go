//go:build !integration

package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/domain/ports/repository"
	"billing-user/internal/infra/metrics"
)

// ---- Account repository ----

type MockAccountRepo struct {
	FindByEmailFunc               func(ctx context.Context, tx repository.Tx, email string) (*model.Account, error)
	FindCurrentPlanFunc           func(ctx context.Context, tx repository.Tx, accountID int64) (*model.Plan, error)
	FindEncryptedCreditCardFunc   func(ctx context.Context, tx repository.Tx, email string) (*model.CreditCard, error)
	UpdateBillingCreditFunc       func(ctx context.Context, tx repository.Tx, a *model.Account) error
	AvailableCreditFunc           func(ctx context.Context, tx repository.Tx, accountID int64) (int, error)
	FindProfileFunc               func(ctx context.Context, tx repository.Tx, email string) (*model.AccountProfile, error)
	UpdatePaymentMethodFunc       func(ctx context.Context, tx repository.Tx, accountID int64, card *model.CreditCard, pm *model.PaymentMethod) error
	FindBusinessPartnerSourceFunc func(ctx context.Context, tx repository.Tx, accountID int64, selectedPlanID int) (*model.BusinessPartnerSource, error)
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func (m *MockAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, tx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) FindCurrentPlan(ctx context.Context, tx repository.Tx, accountID int64) (*model.Plan, error) {
	if m.FindCurrentPlanFunc != nil {
		return m.FindCurrentPlanFunc(ctx, tx, accountID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) FindEncryptedCreditCard(ctx context.Context, tx repository.Tx, email string) (*model.CreditCard, error) {
	if m.FindEncryptedCreditCardFunc != nil {
		return m.FindEncryptedCreditCardFunc(ctx, tx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) UpdateBillingCredit(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.UpdateBillingCreditFunc != nil {
		return m.UpdateBillingCreditFunc(ctx, tx, a)
	}
	return nil
}

func (m *MockAccountRepo) AvailableCredit(ctx context.Context, tx repository.Tx, accountID int64) (int, error) {
	if m.AvailableCreditFunc != nil {
		return m.AvailableCreditFunc(ctx, tx, accountID)
	}
	return 0, nil
}

func (m *MockAccountRepo) FindProfile(ctx context.Context, tx repository.Tx, email string) (*model.AccountProfile, error) {
	if m.FindProfileFunc != nil {
		return m.FindProfileFunc(ctx, tx, email)
	}
	return &model.AccountProfile{Email: email}, nil
}

func (m *MockAccountRepo) UpdatePaymentMethod(ctx context.Context, tx repository.Tx, accountID int64, card *model.CreditCard, pm *model.PaymentMethod) error {
	if m.UpdatePaymentMethodFunc != nil {
		return m.UpdatePaymentMethodFunc(ctx, tx, accountID, card, pm)
	}
	return nil
}

func (m *MockAccountRepo) FindBusinessPartnerSource(ctx context.Context, tx repository.Tx, accountID int64, selectedPlanID int) (*model.BusinessPartnerSource, error) {
	if m.FindBusinessPartnerSourceFunc != nil {
		return m.FindBusinessPartnerSourceFunc(ctx, tx, accountID, selectedPlanID)
	}
	return nil, domain.ErrNotFound
}

// ---- Plan and promotion repositories ----

type MockPlanRepo struct {
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id int) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int) (*model.Plan, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}

type MockPromotionRepo struct {
	FindByCodeFunc     func(ctx context.Context, tx repository.Tx, code string, planID int) (*model.Promotion, error)
	IncrementUsageFunc func(ctx context.Context, tx repository.Tx, promotionID int) error
}

var _ repository.PromotionRepository = (*MockPromotionRepo)(nil)

func (m *MockPromotionRepo) FindByCode(ctx context.Context, tx repository.Tx, code string, planID int) (*model.Promotion, error) {
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, tx, code, planID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockPromotionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, promotionID int) error {
	if m.IncrementUsageFunc != nil {
		return m.IncrementUsageFunc(ctx, tx, promotionID)
	}
	return nil
}

// ---- Billing repository ----

type MockBillingRepo struct {
	GetBillingInformationFunc    func(ctx context.Context, tx repository.Tx, email string) (*model.BillingInformation, error)
	UpdateBillingInformationFunc func(ctx context.Context, tx repository.Tx, email string, b *model.BillingInformation) error
	GetInvoiceRecipientsFunc     func(ctx context.Context, tx repository.Tx, email string) (*model.InvoiceRecipients, error)
	UpdateInvoiceRecipientsFunc  func(ctx context.Context, tx repository.Tx, email string, recipients []string, planID *int) error
	GetCurrentPaymentMethodFunc  func(ctx context.Context, tx repository.Tx, email string) (*model.PaymentMethod, error)
	GetCurrentPlanFunc           func(ctx context.Context, tx repository.Tx, email string) (*model.CurrentPlan, error)
	CreateAccountingEntriesFunc  func(ctx context.Context, tx repository.Tx, invoice, payment *model.AccountingEntry) (int64, error)
	CreateBillingCreditFunc      func(ctx context.Context, tx repository.Tx, bc *model.BillingCredit) (int64, error)
	FindBillingCreditFunc        func(ctx context.Context, tx repository.Tx, id int64) (*model.BillingCredit, error)
	CreateCreditMovementFunc     func(ctx context.Context, tx repository.Tx, m *model.CreditMovement) (int64, error)
}

var _ repository.BillingRepository = (*MockBillingRepo)(nil)

func (m *MockBillingRepo) GetBillingInformation(ctx context.Context, tx repository.Tx, email string) (*model.BillingInformation, error) {
	if m.GetBillingInformationFunc != nil {
		return m.GetBillingInformationFunc(ctx, tx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBillingRepo) UpdateBillingInformation(ctx context.Context, tx repository.Tx, email string, b *model.BillingInformation) error {
	if m.UpdateBillingInformationFunc != nil {
		return m.UpdateBillingInformationFunc(ctx, tx, email, b)
	}
	return nil
}

func (m *MockBillingRepo) GetInvoiceRecipients(ctx context.Context, tx repository.Tx, email string) (*model.InvoiceRecipients, error) {
	if m.GetInvoiceRecipientsFunc != nil {
		return m.GetInvoiceRecipientsFunc(ctx, tx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBillingRepo) UpdateInvoiceRecipients(ctx context.Context, tx repository.Tx, email string, recipients []string, planID *int) error {
	if m.UpdateInvoiceRecipientsFunc != nil {
		return m.UpdateInvoiceRecipientsFunc(ctx, tx, email, recipients, planID)
	}
	return nil
}

func (m *MockBillingRepo) GetCurrentPaymentMethod(ctx context.Context, tx repository.Tx, email string) (*model.PaymentMethod, error) {
	if m.GetCurrentPaymentMethodFunc != nil {
		return m.GetCurrentPaymentMethodFunc(ctx, tx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBillingRepo) GetCurrentPlan(ctx context.Context, tx repository.Tx, email string) (*model.CurrentPlan, error) {
	if m.GetCurrentPlanFunc != nil {
		return m.GetCurrentPlanFunc(ctx, tx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBillingRepo) CreateAccountingEntries(ctx context.Context, tx repository.Tx, invoice, payment *model.AccountingEntry) (int64, error) {
	if m.CreateAccountingEntriesFunc != nil {
		return m.CreateAccountingEntriesFunc(ctx, tx, invoice, payment)
	}
	return 1, nil
}

func (m *MockBillingRepo) CreateBillingCredit(ctx context.Context, tx repository.Tx, bc *model.BillingCredit) (int64, error) {
	if m.CreateBillingCreditFunc != nil {
		return m.CreateBillingCreditFunc(ctx, tx, bc)
	}
	return 1, nil
}

func (m *MockBillingRepo) FindBillingCredit(ctx context.Context, tx repository.Tx, id int64) (*model.BillingCredit, error) {
	if m.FindBillingCreditFunc != nil {
		return m.FindBillingCreditFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBillingRepo) CreateCreditMovement(ctx context.Context, tx repository.Tx, mv *model.CreditMovement) (int64, error) {
	if m.CreateCreditMovementFunc != nil {
		return m.CreateCreditMovementFunc(ctx, tx, mv)
	}
	return 1, nil
}

// ---- Adapters ----

type MockGateway struct {
	CreateCreditCardPaymentFunc func(ctx context.Context, amount decimal.Decimal, card *model.CreditCard, accountID int64) (string, error)
	IsValidCreditCardFunc       func(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreateCreditCardPayment(ctx context.Context, amount decimal.Decimal, card *model.CreditCard, accountID int64) (string, error) {
	if m.CreateCreditCardPaymentFunc != nil {
		return m.CreateCreditCardPaymentFunc(ctx, amount, card, accountID)
	}
	return "auth-1", nil
}

func (m *MockGateway) IsValidCreditCard(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error) {
	if m.IsValidCreditCardFunc != nil {
		return m.IsValidCreditCardFunc(ctx, card, accountID)
	}
	return true, nil
}

type MockPricing struct {
	IsValidTotalFunc func(ctx context.Context, accountName string, req *model.AgreementRequest) (bool, error)
}

func (m *MockPricing) IsValidTotal(ctx context.Context, accountName string, req *model.AgreementRequest) (bool, error) {
	if m.IsValidTotalFunc != nil {
		return m.IsValidTotalFunc(ctx, accountName, req)
	}
	return true, nil
}

// prefixEncrypter "encrypts" by prefixing, so tests can tell both forms apart.
type prefixEncrypter struct{}

func (prefixEncrypter) Encrypt(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return "enc:" + s, nil
}

func (prefixEncrypter) Decrypt(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !strings.HasPrefix(s, "enc:") {
		return "", domain.ErrDecryptFailed
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

type MockSapDispatcher struct {
	mu       sync.Mutex
	Billing  []*model.SapBillingRecord
	Partners []*model.SapBusinessPartner
	Err      error
}

func (m *MockSapDispatcher) DispatchBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Billing = append(m.Billing, rec)
	return nil
}

func (m *MockSapDispatcher) DispatchBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Partners = append(m.Partners, bp)
	return nil
}

type MockEmail struct {
	Customer    []*model.UpgradeNotice
	Admin       []*model.AdminUpgradeNotice
	CustomerErr error
}

func (m *MockEmail) SendUpgradeConfirmation(ctx context.Context, n *model.UpgradeNotice) error {
	if m.CustomerErr != nil {
		return m.CustomerErr
	}
	m.Customer = append(m.Customer, n)
	return nil
}

func (m *MockEmail) SendAdminUpgrade(ctx context.Context, n *model.AdminUpgradeNotice) error {
	m.Admin = append(m.Admin, n)
	return nil
}

type MockAlerter struct {
	mu    sync.Mutex
	Texts []string
}

func (m *MockAlerter) Send(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	return nil
}

func (m *MockAlerter) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Texts) == 0 {
		return ""
	}
	return m.Texts[len(m.Texts)-1]
}

// ---- Transactions ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

var _ adapter.Locker = (*MockLocker)(nil)

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockNotAcquired
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// ---- In-memory idempotency store ----

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: map[string]bool{}}
}

func (m *memIdempotency) Reserve(ctx context.Context, account, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := account + ":" + key
	if m.keys[k] {
		return false, nil
	}
	m.keys[k] = true
	return true, nil
}

func (m *memIdempotency) Release(ctx context.Context, account, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, account+":"+key)
	return nil
}

// testRegistry holds the service collectors for assertions on counters.
var testRegistry = func() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	return reg
}()

// counterValue reads one labelled counter from testRegistry, 0 when absent.
func counterValue(name, label, value string) float64 {
	mfs, err := testRegistry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
