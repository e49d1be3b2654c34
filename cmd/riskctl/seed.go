package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riskpipe/supplychain/internal/config"
	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/internal/logger"
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/store"
)

// newSeedCmd loads a CompanyProfile/Supplier fixture into the document
// store. Seed-data loading is explicitly out of core scope (spec.md §1),
// so this is kept to the minimal loader contract needed to make the
// worker stages runnable end-to-end against a fresh store.
func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the configured company's profile and supplier catalog into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

// newCreateSampleDataCmd is an alias kept for the spec's named entrypoint;
// it loads the same hard-coded sample fixture seed uses when no
// production fixture source is wired in.
func newCreateSampleDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-sample-data",
		Short: "Load a sample company/supplier fixture for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

func runSeed(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg)
	if cfg.CompanyID == "" {
		return errkind.Wrap(errkind.ConfigError, fmt.Errorf("COMPANY_ID is required"))
	}

	s, err := store.NewMongoStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	company, suppliers := sampleFixture(cfg.CompanyID)

	if err := s.UpsertCompany(ctx, company); err != nil {
		return err
	}
	for _, sup := range suppliers {
		if err := s.UpsertSupplier(ctx, sup); err != nil {
			return err
		}
	}

	log.Info().Str("company_id", company.ID).Int("suppliers", len(suppliers)).Msg("seed data loaded")
	return nil
}

// sampleFixture is a small, representative company/supplier graph: one
// tier-1 single-source supplier (to exercise propagation's vulnerability
// multiplier) plus an alternate candidate for the same material (to
// exercise ranker.Rank).
func sampleFixture(companyID string) (model.CompanyProfile, []model.Supplier) {
	company := model.CompanyProfile{
		ID:           companyID,
		Name:         "Acme Manufacturing",
		RawMaterials: []string{"semiconductors", "aluminum"},
		KeyGeographies: []string{"Taiwan", "Vietnam", "Mexico"},
		InventoryDays: map[string]int{"semiconductors": 30, "aluminum": 45},
		MaterialCriticality: map[string]int{"semiconductors": 9, "aluminum": 6},
		AlertContacts: []string{"supply-chain-risk@acme.example"},
	}

	suppliers := []model.Supplier{
		{
			ID:                    companyID + "-sup-1",
			CompanyID:             companyID,
			Name:                  "Taipei Semi Fab",
			Country:               "Taiwan",
			Region:                "APAC",
			Tier:                  1,
			Supplies:              []string{"semiconductors"},
			SupplyVolumePct:       65,
			Status:                model.StatusActive,
			ApprovedVendor:        true,
			IsSingleSource:        true,
			ESGScore:              72,
			FinancialHealthScore:  8.1,
			SwitchingCostEstimate: 6,
			MaxCapacity:           100000,
			LeadTimeWeeks:         6,
		},
		{
			ID:                    companyID + "-sup-2",
			CompanyID:             companyID,
			Name:                  "Saigon Chip Works",
			Country:               "Vietnam",
			Region:                "APAC",
			Tier:                  1,
			Supplies:              []string{"semiconductors"},
			SupplyVolumePct:       20,
			Status:                model.StatusPreQualified,
			ApprovedVendor:        true,
			PreQualified:          true,
			ESGScore:              65,
			FinancialHealthScore:  7.0,
			SwitchingCostEstimate: 4,
			MaxCapacity:           60000,
			LeadTimeWeeks:         4,
		},
		{
			ID:                    companyID + "-sup-3",
			CompanyID:             companyID,
			Name:                  "Monterrey Aluminum Co",
			Country:               "Mexico",
			Region:                "Americas",
			Tier:                  1,
			Supplies:              []string{"aluminum"},
			SupplyVolumePct:       80,
			Status:                model.StatusActive,
			ApprovedVendor:        true,
			ESGScore:              58,
			FinancialHealthScore:  6.9,
			SwitchingCostEstimate: 3,
			MaxCapacity:           80000,
			LeadTimeWeeks:         3,
		},
	}

	return company, suppliers
}
