package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"billing-user/internal/config"
	"billing-user/internal/domain/model"
	pg "billing-user/internal/infra/db/postgres"
	"billing-user/internal/infra/security"
)

var (
	cfgPath    string
	schemaPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a billing-user database with reference and demo data",
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")

	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(referenceCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(allCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Apply the schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, _ *config.Config) error {
				return applySchema(ctx, pool)
			})
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "deploy/postgres/init.sql", "path to the schema file")
	return cmd
}

func referenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reference",
		Short: "Insert states, plans and promotions (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, _ *config.Config) error {
				return seedReference(ctx, pool)
			})
		},
	}
}

func demoCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create a free-tier demo account paying by credit card",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
				return seedDemoAccount(ctx, pool, cfg, email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "demo@example.com", "account email")
	return cmd
}

func allCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "schema + reference + demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
				if err := applySchema(ctx, pool); err != nil {
					return err
				}
				if err := seedReference(ctx, pool); err != nil {
					return err
				}
				return seedDemoAccount(ctx, pool, cfg, "demo@example.com")
			})
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "deploy/postgres/init.sql", "path to the schema file")
	return cmd
}

func withPool(parent context.Context, fn func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.LoadConfig(cfgPath, false)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool, cfg)
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	b, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := pool.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	fmt.Printf("applied %s\n", schemaPath)
	return nil
}

type stateSeed struct {
	ID      int
	Code    string
	Name    string
	Country string
}

type planSeed struct {
	ID          int
	Type        model.UserType
	Description string
	Fee         string
	Emails      *int
	Subscribers *int
}

func intp(v int) *int { return &v }

// State ids line up with the ERP state dictionary.
var states = []stateSeed{
	{1, "BA", "Buenos Aires", "AR"},
	{2, "FL", "Florida", "US"},
	{3, "CBA", "Córdoba", "AR"},
	{4, "SF", "Santa Fe", "AR"},
	{5, "MZA", "Mendoza", "AR"},
	{6, "TUC", "Tucumán", "AR"},
	{7, "CA", "California", "US"},
	{8, "NY", "New York", "US"},
	{9, "TX", "Texas", "US"},
	{10, "WA", "Washington", "US"},
	{11, "MVD", "Montevideo", "UY"},
}

var plans = []planSeed{
	{1, model.UserTypeFree, "Free", "0", intp(500), nil},
	{11, model.UserTypeIndividual, "1,500 emails", "15", intp(1500), nil},
	{12, model.UserTypeIndividual, "5,000 emails", "30", intp(5000), nil},
	{13, model.UserTypeIndividual, "100,000 emails", "210", intp(100000), nil},
	{20, model.UserTypeMonthly, "Monthly 15,000", "40", intp(15000), nil},
	{30, model.UserTypeSubscribers, "Up to 1,500 subscribers", "29", nil, intp(1500)},
}

func seedReference(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range states {
		if _, err := pool.Exec(ctx,
			`INSERT INTO states (id_state, state_code, name, country_code) VALUES ($1,$2,$3,$4) ON CONFLICT (id_state) DO NOTHING`,
			s.ID, s.Code, s.Name, s.Country); err != nil {
			return fmt.Errorf("seed state %s: %w", s.Code, err)
		}
	}
	for _, p := range plans {
		fee := decimal.RequireFromString(p.Fee)
		if _, err := pool.Exec(ctx,
			`INSERT INTO user_types_plans (id_user_type_plan, id_user_type, description, fee, email_qty, subscribers_qty)
			 VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id_user_type_plan) DO NOTHING`,
			p.ID, int(p.Type), p.Description, fee.String(), p.Emails, p.Subscribers); err != nil {
			return fmt.Errorf("seed plan %d: %w", p.ID, err)
		}
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO promotions (code, id_user_type_plan, discount_percentage, extra_credits)
		 VALUES ('WELCOME', 11, 20, 300) ON CONFLICT (code, id_user_type_plan) DO NOTHING`); err != nil {
		return fmt.Errorf("seed promotion: %w", err)
	}
	fmt.Printf("seeded %d states, %d plans, 1 promotion\n", len(states), len(plans))
	return nil
}

// seedDemoAccount stores a Visa test card encrypted with the configured key,
// so the account can run the agreement flow against the dummy gateway.
func seedDemoAccount(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, email string) error {
	enc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		return err
	}
	card, err := security.EncryptCard(enc, "4111111111111111", "Demo User", "123", 12, time.Now().Year()+3, "Visa")
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx,
		`INSERT INTO users (email, first_name, last_name, language, payment_method, id_consumer_type,
			cc_holder_full_name, cc_number, cc_exp_month, cc_exp_year, cc_verification, cc_type,
			billing_first_name, billing_last_name, billing_emails, id_billing_state, id_responsible_billing)
		 VALUES ($1,'Demo','User','en','CC','CF',$2,$3,$4,$5,$6,$7,'Demo','User',$1,1,$8)
		 ON CONFLICT (email) DO NOTHING`,
		email, card.HolderName, card.Number, card.ExpirationMonth, card.ExpirationYear, card.Code, card.CardType,
		int(model.ResponsibleBillingGB))
	if err != nil {
		return fmt.Errorf("seed demo account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		fmt.Printf("account %s already present. No changes.\n", email)
		return nil
	}
	fmt.Printf("seeded demo account %s\n", email)
	return nil
}
