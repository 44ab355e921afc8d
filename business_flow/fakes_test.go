package businessflow

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// memDB is an in-memory stand-in for the tables the flows touch. Fake repositories embed their
// interface so that an unexpected call panics instead of silently passing.
type memDB struct {
	mu sync.Mutex

	nextID uint

	users         map[uint]models.User
	courses       map[uint]models.Course
	discounts     map[uint]models.Discount
	templates     map[uint]models.DistributionTemplate
	buckets       map[uint]models.FundBucket
	sellers       map[uint]models.SellerProfile
	rules         []models.SellerLevelRule
	history       []models.SellerLevelHistory
	sales         map[uint]models.Sale
	distributions []models.SaleDistribution
	expenses      map[uint]models.Expense
	recipients    map[uint]models.SalaryRecipient
	payments      map[uint]models.SalaryPayment
	kpis          map[string]models.MonthlyKpiSnapshot
	audits        []models.AuditLog
}

func newMemDB() *memDB {
	return &memDB{
		users:      map[uint]models.User{},
		courses:    map[uint]models.Course{},
		discounts:  map[uint]models.Discount{},
		templates:  map[uint]models.DistributionTemplate{},
		buckets:    map[uint]models.FundBucket{},
		sellers:    map[uint]models.SellerProfile{},
		sales:      map[uint]models.Sale{},
		expenses:   map[uint]models.Expense{},
		recipients: map[uint]models.SalaryRecipient{},
		payments:   map[uint]models.SalaryPayment{},
		kpis:       map[string]models.MonthlyKpiSnapshot{},
	}
}

func (m *memDB) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memDB) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

// clone copies every table; ids keep counting like a database sequence
func (m *memDB) clone() *memDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memDB{
		users:         maps.Clone(m.users),
		courses:       maps.Clone(m.courses),
		discounts:     maps.Clone(m.discounts),
		templates:     maps.Clone(m.templates),
		buckets:       maps.Clone(m.buckets),
		sellers:       maps.Clone(m.sellers),
		rules:         slices.Clone(m.rules),
		history:       slices.Clone(m.history),
		sales:         maps.Clone(m.sales),
		distributions: slices.Clone(m.distributions),
		expenses:      maps.Clone(m.expenses),
		recipients:    maps.Clone(m.recipients),
		payments:      maps.Clone(m.payments),
		kpis:          maps.Clone(m.kpis),
		audits:        slices.Clone(m.audits),
	}
}

// restore puts back the tables of a clone
func (m *memDB) restore(saved *memDB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = saved.users
	m.courses = saved.courses
	m.discounts = saved.discounts
	m.templates = saved.templates
	m.buckets = saved.buckets
	m.sellers = saved.sellers
	m.rules = saved.rules
	m.history = saved.history
	m.sales = saved.sales
	m.distributions = saved.distributions
	m.expenses = saved.expenses
	m.recipients = saved.recipients
	m.payments = saved.payments
	m.kpis = saved.kpis
	m.audits = saved.audits
}

type fakeTxKey struct{}

func inFakeTx(ctx context.Context) bool {
	_, ok := ctx.Value(fakeTxKey{}).(bool)
	return ok
}

// fakeTransactor rolls the in-memory tables back when fn fails.
// A nested call joins the outer transaction, like repository.WithTransaction.
type fakeTransactor struct {
	db    *memDB
	calls int
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	if inFakeTx(ctx) {
		return fn(ctx)
	}

	saved := t.db.clone()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		t.db.restore(saved)
		return err
	}
	return nil
}

// Audit

type fakeAuditRepo struct {
	repository.AuditLogRepository
	db *memDB
}

func (r *fakeAuditRepo) Save(_ context.Context, audit *models.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	audit.ID = r.db.id()
	r.db.audits = append(r.db.audits, *audit)
	return nil
}

// Users

type fakeUserRepo struct {
	repository.UserRepository
	db *memDB
}

func (r *fakeUserRepo) ByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) ByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Save(_ context.Context, user *models.User) error {
	user.ID = r.db.id()
	r.db.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uint) error {
	delete(r.db.users, id)
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, userID uint, at time.Time) error {
	u, ok := r.db.users[userID]
	if !ok {
		return nil
	}
	u.LastLoginAt = &at
	r.db.users[userID] = u
	return nil
}

// Courses

type fakeCourseRepo struct {
	repository.CourseRepository
	db *memDB
}

func (r *fakeCourseRepo) ByID(_ context.Context, id uint) (*models.Course, error) {
	c, ok := r.db.courses[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeCourseRepo) ByIDWithTemplate(ctx context.Context, id uint) (*models.Course, error) {
	c, ok := r.db.courses[id]
	if !ok {
		return nil, nil
	}
	if c.DistributionTemplateID != nil {
		if t, ok := r.db.templates[*c.DistributionTemplateID]; ok {
			c.DistributionTemplate = &t
		}
	}
	return &c, nil
}

func (r *fakeCourseRepo) ByName(_ context.Context, name string) (*models.Course, error) {
	for _, c := range r.db.courses {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeCourseRepo) ByFilter(_ context.Context, _ models.CourseFilter, _ string, _, _ int) ([]*models.Course, error) {
	out := make([]*models.Course, 0, len(r.db.courses))
	for _, c := range r.db.courses {
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCourseRepo) Save(_ context.Context, course *models.Course) error {
	course.ID = r.db.id()
	r.db.courses[course.ID] = *course
	return nil
}

func (r *fakeCourseRepo) Update(_ context.Context, course *models.Course) error {
	r.db.courses[course.ID] = *course
	return nil
}

func (r *fakeCourseRepo) Delete(_ context.Context, id uint) error {
	delete(r.db.courses, id)
	return nil
}

// Discounts

type fakeDiscountRepo struct {
	repository.DiscountRepository
	db *memDB
}

func (r *fakeDiscountRepo) ByID(_ context.Context, id uint) (*models.Discount, error) {
	d, ok := r.db.discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *fakeDiscountRepo) ByName(_ context.Context, name string) (*models.Discount, error) {
	for _, d := range r.db.discounts {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *fakeDiscountRepo) ByFilter(_ context.Context, filter models.DiscountFilter, _ string, _, _ int) ([]*models.Discount, error) {
	out := make([]*models.Discount, 0, len(r.db.discounts))
	for _, d := range r.db.discounts {
		if filter.IsActive != nil && utils.IsTrue(d.IsActive) != *filter.IsActive {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeDiscountRepo) Save(_ context.Context, discount *models.Discount) error {
	discount.ID = r.db.id()
	r.db.discounts[discount.ID] = *discount
	return nil
}

func (r *fakeDiscountRepo) Update(_ context.Context, discount *models.Discount) error {
	r.db.discounts[discount.ID] = *discount
	return nil
}

func (r *fakeDiscountRepo) Delete(_ context.Context, id uint) error {
	delete(r.db.discounts, id)
	return nil
}

// Templates

type fakeTemplateRepo struct {
	repository.DistributionTemplateRepository
	db *memDB
}

func (r *fakeTemplateRepo) withBuckets(t models.DistributionTemplate) *models.DistributionTemplate {
	allocations := make([]models.DistributionAllocation, 0, len(t.Allocations))
	for _, a := range t.Allocations {
		if b, ok := r.db.buckets[a.BucketID]; ok {
			a.Bucket = &b
		}
		allocations = append(allocations, a)
	}
	t.Allocations = allocations
	return &t
}

func (r *fakeTemplateRepo) ByID(_ context.Context, id uint) (*models.DistributionTemplate, error) {
	t, ok := r.db.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTemplateRepo) ByIDWithAllocations(_ context.Context, id uint) (*models.DistributionTemplate, error) {
	t, ok := r.db.templates[id]
	if !ok {
		return nil, nil
	}
	return r.withBuckets(t), nil
}

func (r *fakeTemplateRepo) ByName(_ context.Context, name string) (*models.DistributionTemplate, error) {
	for _, t := range r.db.templates {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTemplateRepo) ByApplicableTo(_ context.Context, courseType models.CourseType) (*models.DistributionTemplate, error) {
	var found *models.DistributionTemplate
	for _, t := range r.db.templates {
		if t.ApplicableTo != nil && *t.ApplicableTo == courseType && (found == nil || t.ID < found.ID) {
			found = r.withBuckets(t)
		}
	}
	return found, nil
}

func (r *fakeTemplateRepo) ListWithAllocations(_ context.Context) ([]*models.DistributionTemplate, error) {
	out := make([]*models.DistributionTemplate, 0, len(r.db.templates))
	for _, t := range r.db.templates {
		out = append(out, r.withBuckets(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTemplateRepo) Save(_ context.Context, template *models.DistributionTemplate) error {
	template.ID = r.db.id()
	r.db.templates[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, template *models.DistributionTemplate) error {
	stored := r.db.templates[template.ID]
	template.Allocations = stored.Allocations
	r.db.templates[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) ReplaceAllocations(_ context.Context, templateID uint, allocations []*models.DistributionAllocation) error {
	t := r.db.templates[templateID]
	t.Allocations = nil
	for i, a := range allocations {
		a.ID = r.db.id()
		a.TemplateID = templateID
		a.Position = i
		t.Allocations = append(t.Allocations, *a)
	}
	r.db.templates[templateID] = t
	return nil
}

// Buckets

type fakeBucketRepo struct {
	repository.FundBucketRepository
	db *memDB
}

func (r *fakeBucketRepo) ByID(_ context.Context, id uint) (*models.FundBucket, error) {
	b, ok := r.db.buckets[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *fakeBucketRepo) ByKey(_ context.Context, key string) (*models.FundBucket, error) {
	for _, b := range r.db.buckets {
		if b.Key == key {
			return &b, nil
		}
	}
	return nil, nil
}

func (r *fakeBucketRepo) ByIDs(_ context.Context, ids []uint) ([]*models.FundBucket, error) {
	var out []*models.FundBucket
	for _, id := range ids {
		if b, ok := r.db.buckets[id]; ok {
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r *fakeBucketRepo) ListAll(_ context.Context) ([]*models.FundBucket, error) {
	out := make([]*models.FundBucket, 0, len(r.db.buckets))
	for _, b := range r.db.buckets {
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *fakeBucketRepo) HasChildren(_ context.Context, ids []uint) (map[uint]bool, error) {
	parents := map[uint]bool{}
	for _, b := range r.db.buckets {
		if b.ParentID != nil {
			parents[*b.ParentID] = true
		}
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = parents[id]
	}
	return out, nil
}

func (r *fakeBucketRepo) Save(_ context.Context, bucket *models.FundBucket) error {
	bucket.ID = r.db.id()
	r.db.buckets[bucket.ID] = *bucket
	return nil
}

// Sellers

type fakeSellerRepo struct {
	repository.SellerProfileRepository
	db        *memDB
	updateErr error
}

func (r *fakeSellerRepo) ByID(_ context.Context, id uint) (*models.SellerProfile, error) {
	p, ok := r.db.sellers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeSellerRepo) ByIDForUpdate(ctx context.Context, id uint) (*models.SellerProfile, error) {
	return r.ByID(ctx, id)
}

func (r *fakeSellerRepo) ByUserID(_ context.Context, userID uint) (*models.SellerProfile, error) {
	for _, p := range r.db.sellers {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeSellerRepo) ListWithUser(_ context.Context, _, _ int) ([]*models.SellerProfile, error) {
	out := make([]*models.SellerProfile, 0, len(r.db.sellers))
	for _, p := range r.db.sellers {
		if u, ok := r.db.users[p.UserID]; ok {
			p.User = &u
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSellerRepo) Save(_ context.Context, profile *models.SellerProfile) error {
	profile.ID = r.db.id()
	stored := *profile
	stored.User = nil
	r.db.sellers[profile.ID] = stored
	return nil
}

func (r *fakeSellerRepo) Update(_ context.Context, profile *models.SellerProfile) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	stored := *profile
	stored.User = nil
	r.db.sellers[profile.ID] = stored
	return nil
}

func (r *fakeSellerRepo) Delete(_ context.Context, id uint) error {
	delete(r.db.sellers, id)
	for saleID, s := range r.db.sales {
		if s.SellerID != nil && *s.SellerID == id {
			s.SellerID = nil
			r.db.sales[saleID] = s
		}
	}
	return nil
}

// Level rules and history

type fakeRuleRepo struct {
	repository.SellerLevelRuleRepository
	db *memDB
}

func (r *fakeRuleRepo) ListOrdered(_ context.Context) ([]models.SellerLevelRule, error) {
	return finance.SortRules(r.db.rules), nil
}

func (r *fakeRuleRepo) ReplaceAll(_ context.Context, rules []*models.SellerLevelRule) error {
	r.db.rules = nil
	for _, rule := range rules {
		r.db.rules = append(r.db.rules, *rule)
	}
	return nil
}

type fakeHistoryRepo struct {
	repository.SellerLevelHistoryRepository
	db *memDB
}

func (r *fakeHistoryRepo) Save(_ context.Context, h *models.SellerLevelHistory) error {
	h.ID = r.db.id()
	r.db.history = append(r.db.history, *h)
	return nil
}

func (r *fakeHistoryRepo) ByFilter(_ context.Context, filter models.SellerLevelHistoryFilter, _ string, _, _ int) ([]*models.SellerLevelHistory, error) {
	var out []*models.SellerLevelHistory
	for i := len(r.db.history) - 1; i >= 0; i-- {
		h := r.db.history[i]
		if filter.SellerID != nil && h.SellerID != *filter.SellerID {
			continue
		}
		out = append(out, &h)
	}
	return out, nil
}

// Sales and distributions

type fakeSaleRepo struct {
	repository.SaleRepository
	db *memDB
}

func saleMatches(s models.Sale, f models.SaleFilter) bool {
	switch {
	case f.ID != nil && s.ID != *f.ID:
		return false
	case f.CourseID != nil && s.CourseID != *f.CourseID:
		return false
	case f.SellerID != nil && (s.SellerID == nil || *s.SellerID != *f.SellerID):
		return false
	case f.DiscountID != nil && (s.DiscountID == nil || *s.DiscountID != *f.DiscountID):
		return false
	case f.MonthKey != nil && s.MonthKey != *f.MonthKey:
		return false
	}
	return true
}

func (r *fakeSaleRepo) filtered(f models.SaleFilter) []models.Sale {
	var out []models.Sale
	for _, s := range r.db.sales {
		if saleMatches(s, f) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeSaleRepo) Save(_ context.Context, sale *models.Sale) error {
	sale.ID = r.db.id()
	stored := *sale
	stored.Course = nil
	r.db.sales[sale.ID] = stored
	return nil
}

func (r *fakeSaleRepo) ByID(_ context.Context, id uint) (*models.Sale, error) {
	s, ok := r.db.sales[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeSaleRepo) ByIDWithDetails(_ context.Context, id uint) (*models.Sale, error) {
	s, ok := r.db.sales[id]
	if !ok {
		return nil, nil
	}
	if c, ok := r.db.courses[s.CourseID]; ok {
		s.Course = &c
	}
	for _, d := range r.db.distributions {
		if d.SaleID == id {
			s.Distributions = append(s.Distributions, d)
		}
	}
	return &s, nil
}

func (r *fakeSaleRepo) ByFilter(_ context.Context, f models.SaleFilter, _ string, limit, offset int) ([]*models.Sale, error) {
	all := r.filtered(f)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*models.Sale, 0, len(all))
	for i := range all {
		out = append(out, &all[i])
	}
	return out, nil
}

func (r *fakeSaleRepo) Count(_ context.Context, f models.SaleFilter) (int64, error) {
	return int64(len(r.filtered(f))), nil
}

func (r *fakeSaleRepo) Exists(_ context.Context, f models.SaleFilter) (bool, error) {
	return len(r.filtered(f)) > 0, nil
}

func (r *fakeSaleRepo) Delete(_ context.Context, id uint) error {
	delete(r.db.sales, id)
	return nil
}

func (r *fakeSaleRepo) CountBySellerAndMonth(ctx context.Context, sellerID uint, monthKey string) (int64, error) {
	return r.Count(ctx, models.SaleFilter{SellerID: &sellerID, MonthKey: &monthKey})
}

func (r *fakeSaleRepo) AggregateByMonth(_ context.Context, monthKey string) (models.SaleAggregate, error) {
	agg := models.SaleAggregate{}
	for _, s := range r.filtered(models.SaleFilter{MonthKey: &monthKey}) {
		agg.TotalPriceBefore = agg.TotalPriceBefore.Add(s.PriceBefore)
		agg.TotalRevenue = agg.TotalRevenue.Add(s.PriceAfterDiscount)
		agg.TotalProfitAfterPlatform = agg.TotalProfitAfterPlatform.Add(s.ProfitAfterPlatform)
		agg.TotalNetProfit = agg.TotalNetProfit.Add(s.NetProfit)
		agg.TotalDiscount = agg.TotalDiscount.Add(s.DiscountAmount)
		agg.TotalCommission = agg.TotalCommission.Add(s.SellerCommission)
		agg.SalesCount++
	}
	return agg, nil
}

func (r *fakeSaleRepo) StatsBySellerForMonth(_ context.Context, monthKey string) ([]*models.SellerMonthStats, error) {
	bySeller := map[uint]*models.SellerMonthStats{}
	for _, s := range r.filtered(models.SaleFilter{MonthKey: &monthKey}) {
		if s.SellerID == nil {
			continue
		}
		row, ok := bySeller[*s.SellerID]
		if !ok {
			row = &models.SellerMonthStats{SellerID: *s.SellerID}
			bySeller[*s.SellerID] = row
		}
		row.SalesCount++
		row.TotalRevenue = row.TotalRevenue.Add(s.PriceAfterDiscount)
		row.TotalNetProfit = row.TotalNetProfit.Add(s.NetProfit)
		row.TotalCommission = row.TotalCommission.Add(s.SellerCommission)
	}
	out := make([]*models.SellerMonthStats, 0, len(bySeller))
	for _, row := range bySeller {
		out = append(out, row)
	}
	return out, nil
}

type fakeDistRepo struct {
	repository.SaleDistributionRepository
	db      *memDB
	saveErr error
}

func (r *fakeDistRepo) SaveBatch(_ context.Context, rows []*models.SaleDistribution) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, d := range rows {
		d.ID = r.db.id()
		r.db.distributions = append(r.db.distributions, *d)
	}
	return nil
}

func (r *fakeDistRepo) DeleteBySale(_ context.Context, saleID uint) error {
	kept := r.db.distributions[:0]
	for _, d := range r.db.distributions {
		if d.SaleID != saleID {
			kept = append(kept, d)
		}
	}
	r.db.distributions = kept
	return nil
}

func (r *fakeDistRepo) SumByBucket(_ context.Context, monthKeys []string) (map[uint]decimal.Decimal, error) {
	months := map[string]bool{}
	for _, k := range monthKeys {
		months[k] = true
	}
	out := map[uint]decimal.Decimal{}
	for _, d := range r.db.distributions {
		if len(months) > 0 && !months[r.db.sales[d.SaleID].MonthKey] {
			continue
		}
		out[d.BucketID] = out[d.BucketID].Add(d.Amount)
	}
	return out, nil
}

// KPI snapshots

type fakeKpiRepo struct {
	repository.MonthlyKpiSnapshotRepository
	db        *memDB
	locked    []string
	upsertErr error
}

func (r *fakeKpiRepo) LockMonth(ctx context.Context, monthKey string) error {
	if !inFakeTx(ctx) {
		return repository.ErrMonthLockOutsideTransaction
	}
	r.locked = append(r.locked, monthKey)
	return nil
}

func (r *fakeKpiRepo) ByMonthKey(_ context.Context, monthKey string) (*models.MonthlyKpiSnapshot, error) {
	s, ok := r.db.kpis[monthKey]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeKpiRepo) Upsert(_ context.Context, snapshot *models.MonthlyKpiSnapshot) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if existing, ok := r.db.kpis[snapshot.MonthKey]; ok {
		snapshot.ID = existing.ID
	} else {
		snapshot.ID = r.db.id()
	}
	r.db.kpis[snapshot.MonthKey] = *snapshot
	return nil
}

func (r *fakeKpiRepo) ListLatest(_ context.Context, limit int) ([]*models.MonthlyKpiSnapshot, error) {
	keys := make([]string, 0, len(r.db.kpis))
	for k := range r.db.kpis {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit < len(keys) {
		keys = keys[:limit]
	}
	out := make([]*models.MonthlyKpiSnapshot, 0, len(keys))
	for _, k := range keys {
		s := r.db.kpis[k]
		out = append(out, &s)
	}
	return out, nil
}

// Expenses and salaries

type fakeExpenseRepo struct {
	repository.ExpenseRepository
	db *memDB
}

func (r *fakeExpenseRepo) Save(_ context.Context, e *models.Expense) error {
	e.ID = r.db.id()
	r.db.expenses[e.ID] = *e
	return nil
}

func (r *fakeExpenseRepo) ByID(_ context.Context, id uint) (*models.Expense, error) {
	e, ok := r.db.expenses[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *fakeExpenseRepo) Delete(_ context.Context, id uint) error {
	delete(r.db.expenses, id)
	return nil
}

func (r *fakeExpenseRepo) matching(f models.ExpenseFilter) []models.Expense {
	var out []models.Expense
	for _, e := range r.db.expenses {
		if f.MonthKey != nil && e.MonthKey != *f.MonthKey {
			continue
		}
		if f.BucketID != nil && e.BucketID != *f.BucketID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeExpenseRepo) ByFilter(_ context.Context, f models.ExpenseFilter, _ string, _, _ int) ([]*models.Expense, error) {
	rows := r.matching(f)
	out := make([]*models.Expense, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (r *fakeExpenseRepo) Count(_ context.Context, f models.ExpenseFilter) (int64, error) {
	return int64(len(r.matching(f))), nil
}

func (r *fakeExpenseRepo) SumByBucket(_ context.Context, monthKeys []string) (map[uint]decimal.Decimal, error) {
	months := map[string]bool{}
	for _, k := range monthKeys {
		months[k] = true
	}
	out := map[uint]decimal.Decimal{}
	for _, e := range r.db.expenses {
		if len(months) > 0 && !months[e.MonthKey] {
			continue
		}
		out[e.BucketID] = out[e.BucketID].Add(e.Amount)
	}
	return out, nil
}

type fakeRecipientRepo struct {
	repository.SalaryRecipientRepository
	db *memDB
}

func (r *fakeRecipientRepo) Save(_ context.Context, rec *models.SalaryRecipient) error {
	rec.ID = r.db.id()
	r.db.recipients[rec.ID] = *rec
	return nil
}

func (r *fakeRecipientRepo) ByID(_ context.Context, id uint) (*models.SalaryRecipient, error) {
	rec, ok := r.db.recipients[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *fakeRecipientRepo) ByFilter(_ context.Context, _ models.SalaryRecipientFilter, _ string, _, _ int) ([]*models.SalaryRecipient, error) {
	out := make([]*models.SalaryRecipient, 0, len(r.db.recipients))
	for _, rec := range r.db.recipients {
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakePaymentRepo struct {
	repository.SalaryPaymentRepository
	db *memDB
}

func (r *fakePaymentRepo) Save(_ context.Context, p *models.SalaryPayment) error {
	p.ID = r.db.id()
	r.db.payments[p.ID] = *p
	return nil
}

func (r *fakePaymentRepo) SumByBucket(_ context.Context) (map[uint]decimal.Decimal, error) {
	out := map[uint]decimal.Decimal{}
	for _, p := range r.db.payments {
		out[p.BucketID] = out[p.BucketID].Add(p.Amount)
	}
	return out, nil
}

func (r *fakePaymentRepo) ByFilter(_ context.Context, f models.SalaryPaymentFilter, _ string, _, _ int) ([]*models.SalaryPayment, error) {
	var out []*models.SalaryPayment
	for _, p := range r.db.payments {
		if f.RecipientID != nil && p.RecipientID != *f.RecipientID {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func (r *fakePaymentRepo) Count(ctx context.Context, f models.SalaryPaymentFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), nil
}

// fixture wires every flow to one memDB
type fixture struct {
	db         *memDB
	transactor *fakeTransactor
	logger     *logrus.Logger
	logs       *test.Hook

	users      *fakeUserRepo
	courses    *fakeCourseRepo
	discounts  *fakeDiscountRepo
	templates  *fakeTemplateRepo
	buckets    *fakeBucketRepo
	sellers    *fakeSellerRepo
	rules      *fakeRuleRepo
	history    *fakeHistoryRepo
	sales      *fakeSaleRepo
	dists      *fakeDistRepo
	kpis       *fakeKpiRepo
	expenses   *fakeExpenseRepo
	recipients *fakeRecipientRepo
	payments   *fakePaymentRepo
	audits     *fakeAuditRepo

	kpiFlow    KpiFlow
	saleFlow   SaleFlow
	fundFlow   FundFlow
	catalog    CatalogFlow
	sellerFlow SellerFlow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		db:         db,
		transactor: &fakeTransactor{db: db},
		logger:     logger,
		logs:       hook,
		users:      &fakeUserRepo{db: db},
		courses:    &fakeCourseRepo{db: db},
		discounts:  &fakeDiscountRepo{db: db},
		templates:  &fakeTemplateRepo{db: db},
		buckets:    &fakeBucketRepo{db: db},
		sellers:    &fakeSellerRepo{db: db},
		rules:      &fakeRuleRepo{db: db},
		history:    &fakeHistoryRepo{db: db},
		sales:      &fakeSaleRepo{db: db},
		dists:      &fakeDistRepo{db: db},
		kpis:       &fakeKpiRepo{db: db},
		expenses:   &fakeExpenseRepo{db: db},
		recipients: &fakeRecipientRepo{db: db},
		payments:   &fakePaymentRepo{db: db},
		audits:     &fakeAuditRepo{db: db},
	}

	f.kpiFlow = NewKpiFlow(f.sales, f.kpis, f.audits, f.transactor, logger)
	f.saleFlow = NewSaleFlow(f.courses, f.templates, f.discounts, f.sellers, f.rules, f.history,
		f.sales, f.dists, f.audits, f.kpiFlow, f.transactor, nil, logger)
	f.fundFlow = NewFundFlow(f.buckets, f.dists, f.expenses, f.recipients, f.payments, f.audits, f.transactor)
	f.catalog = NewCatalogFlow(f.courses, f.discounts, f.templates, f.buckets, f.sales, f.audits,
		f.transactor, decimal.RequireFromString("0.135"))
	f.sellerFlow = NewSellerFlow(f.users, f.sellers, f.rules, f.history, f.sales, f.audits, f.transactor, 4)
	return f
}

var errStorage = errors.New("storage unavailable")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func uintPtr(v uint) *uint {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func ownerMetadata() *ClientMetadata {
	md := NewClientMetadata("127.0.0.1", "go-test")
	md.SetActor(1, models.UserRoleOwner)
	return md
}

func sellerMetadata(userID uint) *ClientMetadata {
	md := NewClientMetadata("127.0.0.1", "go-test")
	md.SetActor(userID, models.UserRoleSeller)
	return md
}

// seedRules stores the four-tier table used across the sale tests
func (f *fixture) seedRules() {
	f.db.rules = []models.SellerLevelRule{
		{Level: 1, MinSales: 0, MaxSales: intPtr(9), CommissionRate: dec("0.15")},
		{Level: 2, MinSales: 10, MaxSales: intPtr(19), CommissionRate: dec("0.2")},
		{Level: 3, MinSales: 20, MaxSales: intPtr(39), CommissionRate: dec("0.25")},
		{Level: 4, MinSales: 40, CommissionRate: dec("0.33")},
	}
}

func (f *fixture) seedBucket(key, label string, parentID *uint) models.FundBucket {
	b := models.FundBucket{Key: key, Label: label, ParentID: parentID}
	_ = f.buckets.Save(context.Background(), &b)
	return b
}

// seedTemplate stores a template splitting net profit over the given bucket/percentage pairs
func (f *fixture) seedTemplate(name string, applicableTo *models.CourseType, pairs ...any) models.DistributionTemplate {
	t := models.DistributionTemplate{Name: name, ApplicableTo: applicableTo}
	for i := 0; i < len(pairs); i += 2 {
		t.Allocations = append(t.Allocations, models.DistributionAllocation{
			BucketID:   pairs[i].(uint),
			Percentage: dec(pairs[i+1].(string)),
			Position:   i / 2,
		})
	}
	_ = f.templates.Save(context.Background(), &t)
	return t
}

func (f *fixture) seedCourse(name string, courseType models.CourseType, price, feeRate string, templateID *uint) models.Course {
	c := models.Course{
		Name:                   name,
		Type:                   courseType,
		BasePrice:              dec(price),
		PlatformFeeRate:        dec(feeRate),
		DistributionTemplateID: templateID,
	}
	_ = f.courses.Save(context.Background(), &c)
	return c
}

func (f *fixture) seedSeller(userID uint, monthKey string, salesThisMonth, level int, rate string) models.SellerProfile {
	f.db.users[userID] = models.User{ID: userID, Name: "Seller", Email: "seller@academy.local", Role: models.UserRoleSeller}
	p := models.SellerProfile{
		UserID:              userID,
		Level:               level,
		SalesThisMonth:      salesThisMonth,
		CurrentCommission:   dec(rate),
		MonthKey:            monthKey,
		TotalCommissionPaid: decimal.Zero,
	}
	_ = f.sellers.Save(context.Background(), &p)
	return p
}

func (f *fixture) seedDiscount(name string, kind models.DiscountType, amount string, active bool) models.Discount {
	d := models.Discount{Name: name, Type: kind, Amount: dec(amount), IsActive: utils.ToPtr(active)}
	_ = f.discounts.Save(context.Background(), &d)
	return d
}
