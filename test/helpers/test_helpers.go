package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/cash-ledger/internal/auth"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/repository"
	"github.com/nimasrn/cash-ledger/pkg/pg"
	"github.com/nimasrn/cash-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const TestPassword = "secret-password"

func SetupTestDB(t *testing.T) *pg.DB {
	return repository.NewTestDB(t)
}

// SetupTestRedis starts a miniredis and an adapter under a connection name
// unique to the test, since adapters are cached by name.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	connName := fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestUser(t *testing.T, db *pg.DB, email string) *model.User {
	hash, err := auth.NewPasswordHasher(bcrypt.MinCost).Hash(TestPassword)
	require.NoError(t, err)

	user, err := repository.NewUserRepository(db).Create(context.Background(), &model.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return user
}

func CreateTestCustomer(t *testing.T, db *pg.DB, ownerID, name, phone string) *model.Customer {
	customer, err := repository.NewCustomerRepository(db).Create(context.Background(), &model.Customer{
		OwnerID: ownerID,
		Name:    name,
		Phone:   phone,
	})
	require.NoError(t, err)
	return customer
}

func CreateTestTransaction(t *testing.T, db *pg.DB, customer *model.Customer, txType model.TransactionType, amount string) *model.Transaction {
	txn, err := repository.NewTransactionRepository(db).Create(context.Background(), &model.Transaction{
		CustomerID:    customer.ID,
		OwnerID:       customer.OwnerID,
		Type:          txType,
		Amount:        Decimal(amount),
		PaymentMethod: model.PaymentCash,
		Date:          time.Now().UTC(),
	})
	require.NoError(t, err)
	return txn
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Decimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Ptr[T any](v T) *T {
	return &v
}
