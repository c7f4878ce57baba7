package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a storage transaction and hands the
// transaction handle to fn as tx. Repositories accept that handle in every
// method and fall back to the pool when it is NoTX. The agreement workflow
// uses it to write the billing credit, account update, balance read and
// movement as one unit.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
