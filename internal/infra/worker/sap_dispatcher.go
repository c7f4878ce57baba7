package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/logging"
	"billing-user/internal/infra/metrics"
)

var _ adapter.SapDispatcher = (*SapDispatcher)(nil)

// SapDispatcher pushes ERP records from the worker pool so that the
// request that produced them never waits on, or fails because of, the ERP.
type SapDispatcher struct {
	pool    *Pool
	client  adapter.SapClient
	alerter adapter.Alerter
	timeout time.Duration
	log     *zerolog.Logger
}

func NewSapDispatcher(pool *Pool, client adapter.SapClient, alerter adapter.Alerter, timeout time.Duration, logger *zerolog.Logger) *SapDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SapDispatcher{pool: pool, client: client, alerter: alerter, timeout: timeout, log: logger}
}

func (d *SapDispatcher) DispatchBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error {
	return d.dispatch(ctx, "billing", accountName, func(ctx context.Context) error {
		return d.client.SendBilling(ctx, rec, accountName)
	})
}

func (d *SapDispatcher) DispatchBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error {
	return d.dispatch(ctx, "business_partner", bp.Email, func(ctx context.Context) error {
		return d.client.SendBusinessPartner(ctx, bp)
	})
}

func (d *SapDispatcher) dispatch(ctx context.Context, kind, account string, send func(context.Context) error) error {
	// The task outlives the request; keep its values but drop its deadline.
	base := context.WithoutCancel(ctx)
	log := logging.With(ctx, d.log)

	err := d.pool.Submit(func(_ context.Context) error {
		tctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		if err := send(tctx); err != nil {
			metrics.IncSapDispatch(kind, "failed")
			log.Error().Err(err).Str("kind", kind).Msg("sap push failed")
			if d.alerter != nil {
				_ = d.alerter.Send(tctx, fmt.Sprintf("Failed at sending %s record to SAP for user: %s. Error: %v", kind, account, err))
			}
			return err
		}
		metrics.IncSapDispatch(kind, "sent")
		log.Info().Str("kind", kind).Msg("sap push sent")
		return nil
	})
	if err != nil {
		metrics.IncSapDispatch(kind, "dropped")
		return fmt.Errorf("schedule sap %s push: %w", kind, err)
	}
	metrics.IncSapDispatch(kind, "queued")
	return nil
}
