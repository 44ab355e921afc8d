package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/academy-ledger/app/dto"
	businessflow "github.com/amirphl/academy-ledger/business_flow"
	"github.com/amirphl/academy-ledger/config"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type bucketSeed struct {
	key          string
	label        string
	defaultShare string
	children     []bucketSeed
}

var defaultBucketTree = []bucketSeed{
	{key: "ownership", label: "Ownership & Retained Profits", defaultShare: "0.3", children: []bucketSeed{
		{key: "owners", label: "Owners", defaultShare: "0.6"},
		{key: "retained", label: "Retained Profits", defaultShare: "0.4"},
	}},
	{key: "team", label: "Team", defaultShare: "0.4", children: []bucketSeed{
		{key: "team_lecturers", label: "Lecturers", defaultShare: "0.34"},
		{key: "team_powerpoint", label: "PowerPoint Designers", defaultShare: "0.3"},
		{key: "team_social", label: "Social Media Managers", defaultShare: "0.15"},
		{key: "team_mcq", label: "MCQ Team", defaultShare: "0.1"},
		{key: "team_admins", label: "Admins", defaultShare: "0.11"},
	}},
	{key: "academy", label: "Academy", defaultShare: "0.3", children: []bucketSeed{
		{key: "academy_influencers", label: "Influencers & Partnerships", defaultShare: "0.267"},
		{key: "academy_dev", label: "New Courses & Content Development", defaultShare: "0.233"},
		{key: "academy_rewards", label: "Rewards & Bonuses", defaultShare: "0.167"},
		{key: "academy_ads", label: "Paid Advertisements", defaultShare: "0.333"},
	}},
}

var defaultLevelRules = []dto.LevelRuleInput{
	{Level: 1, MinSales: 0, MaxSales: utils.ToPtr(9), CommissionRate: "0.15"},
	{Level: 2, MinSales: 10, MaxSales: utils.ToPtr(19), CommissionRate: "0.2"},
	{Level: 3, MinSales: 20, MaxSales: utils.ToPtr(39), CommissionRate: "0.25"},
	{Level: 4, MinSales: 40, CommissionRate: "0.33"},
}

var defaultDiscounts = []dto.CreateDiscountRequest{
	{Name: "No Discount", Type: string(models.DiscountTypeFlat), Amount: "0"},
	{Name: "5 Friends Discount", Type: string(models.DiscountTypeFlat), Amount: "10000"},
	{Name: "Black Friday", Type: string(models.DiscountTypeFlat), Amount: "8000"},
}

type templateSeed struct {
	name         string
	applicableTo models.CourseType
	allocations  map[string]string
}

var defaultTemplates = []templateSeed{
	{
		name:         "Ministerial Default",
		applicableTo: models.CourseTypeMinisterial,
		allocations: map[string]string{
			"owners":              "0.18",
			"retained":            "0.12",
			"team_lecturers":      "0.136",
			"team_powerpoint":     "0.12",
			"team_social":         "0.06",
			"team_mcq":            "0.04",
			"team_admins":         "0.044",
			"academy_influencers": "0.0801",
			"academy_dev":         "0.0699",
			"academy_rewards":     "0.0501",
			"academy_ads":         "0.0999",
		},
	},
	{
		name:         "Summer Default",
		applicableTo: models.CourseTypeSummer,
		allocations: map[string]string{
			"owners":              "0.3",
			"retained":            "0.2",
			"academy_influencers": "0.1335",
			"academy_dev":         "0.1165",
			"academy_rewards":     "0.0835",
			"academy_ads":         "0.1665",
		},
	},
}

// ensureOwnerAccount creates the configured owner once; an existing account is left untouched
func ensureOwnerAccount(ctx context.Context, userRepo repository.UserRepository, cfg config.BootstrapConfig, bcryptCost int, logger *logrus.Logger) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.OwnerEmail))
	if email == "" {
		logger.Warn("OWNER_EMAIL not set, skipping owner bootstrap")
		return nil, nil
	}

	existing, err := userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner account: %w", err)
	}
	if existing != nil {
		if existing.Role != models.UserRoleOwner && existing.Role != models.UserRoleAdmin {
			return nil, fmt.Errorf("bootstrap owner email %s belongs to a %s account", email, existing.Role)
		}
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.OwnerPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash owner password: %w", err)
	}

	now := utils.UTCNow()
	owner := &models.User{
		UUID:         uuid.New(),
		Email:        email,
		Name:         cfg.OwnerName,
		Role:         models.UserRoleOwner,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := userRepo.Save(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to create owner account: %w", err)
	}

	logger.WithField("email", email).Info("Owner account created")
	return owner, nil
}

// defaultSetup seeds the bucket tree, level rules, discounts and templates.
// Every part is skipped when matching data already exists, so it is safe on every start.
type defaultSetup struct {
	buckets   repository.FundBucketRepository
	rules     repository.SellerLevelRuleRepository
	discounts repository.DiscountRepository
	templates repository.DistributionTemplateRepository

	fundFlow    businessflow.FundFlow
	sellerFlow  businessflow.SellerFlow
	catalogFlow businessflow.CatalogFlow

	logger *logrus.Logger
}

func (s defaultSetup) ensure(ctx context.Context, owner *models.User) error {
	metadata := businessflow.NewClientMetadata("127.0.0.1", "bootstrap")
	if owner != nil {
		metadata.SetActor(owner.ID, owner.Role)
	}

	steps := []struct {
		name string
		run  func(context.Context, *businessflow.ClientMetadata) error
	}{
		{"level rules", s.ensureLevelRules},
		{"fund buckets", s.ensureBuckets},
		{"discounts", s.ensureDiscounts},
		{"distribution templates", s.ensureTemplates},
	}
	for _, step := range steps {
		if err := step.run(ctx, metadata); err != nil {
			return fmt.Errorf("failed to seed %s: %w", step.name, err)
		}
	}
	return nil
}

func (s defaultSetup) ensureLevelRules(ctx context.Context, metadata *businessflow.ClientMetadata) error {
	existing, err := s.rules.ListOrdered(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if _, err := s.sellerFlow.UpdateLevelRules(ctx, &dto.UpdateLevelRulesRequest{Rules: defaultLevelRules}, metadata); err != nil {
		return err
	}
	s.logger.WithField("count", len(defaultLevelRules)).Info("Seeded seller level rules")
	return nil
}

func (s defaultSetup) ensureBuckets(ctx context.Context, metadata *businessflow.ClientMetadata) error {
	var walk func(seeds []bucketSeed, parentID *uint) error
	walk = func(seeds []bucketSeed, parentID *uint) error {
		for _, seed := range seeds {
			bucket, err := s.buckets.ByKey(ctx, seed.key)
			if err != nil {
				return err
			}
			id := uint(0)
			if bucket != nil {
				id = bucket.ID
			} else {
				created, err := s.fundFlow.CreateBucket(ctx, &dto.CreateBucketRequest{
					Key:          seed.key,
					Label:        seed.label,
					ParentID:     parentID,
					DefaultShare: utils.ToPtr(seed.defaultShare),
				}, metadata)
				if err != nil {
					return err
				}
				id = created.Bucket.ID
				s.logger.WithField("key", seed.key).Info("Seeded fund bucket")
			}
			if err := walk(seed.children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(defaultBucketTree, nil)
}

func (s defaultSetup) ensureDiscounts(ctx context.Context, metadata *businessflow.ClientMetadata) error {
	for _, seed := range defaultDiscounts {
		existing, err := s.discounts.ByName(ctx, seed.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		req := seed
		if _, err := s.catalogFlow.CreateDiscount(ctx, &req, metadata); err != nil {
			return err
		}
		s.logger.WithField("name", seed.Name).Info("Seeded discount")
	}
	return nil
}

func (s defaultSetup) ensureTemplates(ctx context.Context, metadata *businessflow.ClientMetadata) error {
	for _, seed := range defaultTemplates {
		existing, err := s.templates.ByName(ctx, seed.name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		taken, err := s.templates.ByApplicableTo(ctx, seed.applicableTo)
		if err != nil {
			return err
		}
		if taken != nil {
			continue
		}

		allocations := make([]dto.TemplateAllocationInput, 0, len(seed.allocations))
		for key, percentage := range seed.allocations {
			bucket, err := s.buckets.ByKey(ctx, key)
			if err != nil {
				return err
			}
			if bucket == nil {
				return fmt.Errorf("template %s references missing bucket %s", seed.name, key)
			}
			allocations = append(allocations, dto.TemplateAllocationInput{BucketID: bucket.ID, Percentage: percentage})
		}

		if _, err := s.catalogFlow.SaveTemplate(ctx, &dto.SaveTemplateRequest{
			Name:         seed.name,
			ApplicableTo: utils.ToPtr(string(seed.applicableTo)),
			Allocations:  allocations,
		}, metadata); err != nil {
			return err
		}
		s.logger.WithField("name", seed.name).Info("Seeded distribution template")
	}
	return nil
}
