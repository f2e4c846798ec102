package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-voiceagent/internal/ai"
	"go-voiceagent/internal/config"
	"go-voiceagent/internal/models"
	"go-voiceagent/internal/normalize"
)

// fakeStore records writes in memory and can be told to fail per table.
type fakeStore struct {
	profiles map[string]models.ProfilePatch
	roles    map[string]*models.RoleAssignment
	orgs     []*models.Organization
	postings []*models.RolePosting

	profileErr error
	roleErr    error
	orgErr     error
	postingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]models.ProfilePatch{},
		roles:    map[string]*models.RoleAssignment{},
	}
}

func (f *fakeStore) UpsertProfile(_ context.Context, userID string, patch models.ProfilePatch) error {
	if f.profileErr != nil {
		return f.profileErr
	}
	f.profiles[userID] = patch
	return nil
}

func (f *fakeStore) AuthoritativeRole(_ context.Context, userID string) (*models.RoleAssignment, error) {
	return f.roles[userID], nil
}

func (f *fakeStore) UpsertRoleAssignment(_ context.Context, ra *models.RoleAssignment) error {
	if f.roleErr != nil {
		return f.roleErr
	}
	f.roles[ra.UserID] = ra
	return nil
}

func (f *fakeStore) FindOrganizationByName(_ context.Context, name string) (*models.Organization, error) {
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	for _, org := range f.orgs {
		if org.Name == name {
			return org, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateOrganization(_ context.Context, id string, industry, location *string) error {
	for _, org := range f.orgs {
		if org.ID == id {
			if industry != nil {
				org.Industry = industry
			}
			if location != nil {
				org.Location = location
			}
			return nil
		}
	}
	return errors.New("org not found")
}

func (f *fakeStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	org.ID = "org-1"
	f.orgs = append(f.orgs, org)
	return nil
}

func (f *fakeStore) LatestOrganizationByOwner(_ context.Context, userID string) (*models.Organization, error) {
	for i := len(f.orgs) - 1; i >= 0; i-- {
		if f.orgs[i].CreatedByUserID != nil && *f.orgs[i].CreatedByUserID == userID {
			return f.orgs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DraftPosting(_ context.Context, userID string) (*models.RolePosting, error) {
	if f.postingErr != nil {
		return nil, f.postingErr
	}
	for _, p := range f.postings {
		if p.UserID == userID && p.Status == "draft" {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdatePosting(_ context.Context, id string, patch models.PostingPatch) error {
	for _, p := range f.postings {
		if p.ID == id {
			if patch.Title != nil {
				p.Title = patch.Title
			}
			if patch.Location != nil {
				p.Location = patch.Location
			}
			if patch.EngagementType != nil {
				p.EngagementType = patch.EngagementType
			}
			if patch.OrganizationID != nil {
				p.OrganizationID = patch.OrganizationID
			}
			return nil
		}
	}
	return errors.New("posting not found")
}

func (f *fakeStore) CreatePosting(_ context.Context, p *models.RolePosting) error {
	p.ID = "post-1"
	f.postings = append(f.postings, p)
	return nil
}

func str(s string) *string { return &s }
func f64(v float64) *float64 { return &v }

func newTestReconciler(store Store) *Reconciler {
	canon := normalize.NewCanon(config.DefaultIndustries(), config.DefaultIndustrySynonyms())
	return New(store, canon, 0.8)
}

func TestApplyProfileNormalizesAndMerges(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Profile: &ai.ProfileUpdate{
			FirstName:  str("Sarah"),
			Headline:   str("chief financial officer"),
			Location:   str("dublin, ireland"),
			Industries: ai.StringList{"banking", "made-up industry"},
		},
	})

	assert.Equal(t, Report{"people_profiles": true}, report)
	patch := store.profiles["u1"]
	require.NotNil(t, patch.FirstName)
	assert.Equal(t, "Sarah", *patch.FirstName)
	assert.Equal(t, "CFO", *patch.Headline)
	assert.Equal(t, "dublin, ireland", *patch.Location)
	assert.Equal(t, []string{"Fintech"}, patch.Industries, "unmatched industries are dropped, not stored raw")
}

// Locations are free text carrying the city; they must survive reconciliation
// word for word, unlike industries which map onto a closed enum.
func TestLocationsStoredVerbatim(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Profile:      &ai.ProfileUpdate{Location: str("Dublin")},
		Organization: &ai.OrganizationUpdate{Name: str("Acme Capital"), Location: str("Dublin")},
		Posting:      &ai.PostingUpdate{Location: str("Dublin")},
	})

	assert.Equal(t, Report{"people_profiles": true, "organizations": true, "role_postings": true}, report)

	require.NotNil(t, store.profiles["u1"].Location)
	assert.Contains(t, *store.profiles["u1"].Location, "Dublin")

	require.Len(t, store.orgs, 1)
	require.NotNil(t, store.orgs[0].Location)
	assert.Contains(t, *store.orgs[0].Location, "Dublin")

	require.Len(t, store.postings, 1)
	assert.Equal(t, "Dublin", *store.postings[0].Location)
}

func TestApplyRoleFirstAssertion(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Role: &ai.RoleUpdate{Role: "talent", Confidence: f64(0.9)},
	})

	assert.Equal(t, Report{"role_assignments": true}, report)
	ra := store.roles["u1"]
	require.NotNil(t, ra)
	assert.Equal(t, models.RoleTalent, ra.Role)
	assert.Equal(t, 0.9, ra.Confidence)
	assert.Contains(t, string(ra.Evidence), "i1")
}

func TestEstablishedRoleNeverFlips(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = &models.RoleAssignment{UserID: "u1", Role: models.RoleTalent, Confidence: 0.9}
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i2", ai.Updates{
		Role: &ai.RoleUpdate{Role: "hirer", Confidence: f64(0.99)},
	})

	assert.Empty(t, report, "opposite-polarity assertion is silently dropped")
	assert.Equal(t, models.RoleTalent, store.roles["u1"].Role)
}

func TestSubThresholdRoleCanStillChange(t *testing.T) {
	store := newFakeStore()
	store.roles["u1"] = &models.RoleAssignment{UserID: "u1", Role: models.RoleTalent, Confidence: 0.5}
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i2", ai.Updates{
		Role: &ai.RoleUpdate{Role: "hirer", Confidence: f64(0.9)},
	})

	assert.Equal(t, Report{"role_assignments": true}, report)
	assert.Equal(t, models.RoleHirer, store.roles["u1"].Role)
}

func TestApplyOrganizationCreateThenMatch(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Organization: &ai.OrganizationUpdate{Name: str("Acme Capital")},
	})
	assert.Equal(t, Report{"organizations": true}, report)
	require.Len(t, store.orgs, 1)
	assert.Nil(t, store.orgs[0].Industry)

	// second mention merges into the existing org
	report = r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Organization: &ai.OrganizationUpdate{Name: str("Acme Capital"), Industry: str("banking")},
	})
	assert.Equal(t, Report{"organizations": true}, report)
	require.Len(t, store.orgs, 1)
	require.NotNil(t, store.orgs[0].Industry)
	assert.Equal(t, "Fintech", *store.orgs[0].Industry)
}

func TestApplyPostingSingleDraft(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Posting: &ai.PostingUpdate{Title: str("chief technology officer")},
	})
	assert.Equal(t, Report{"role_postings": true}, report)
	require.Len(t, store.postings, 1)
	assert.Equal(t, "CTO", *store.postings[0].Title)

	report = r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Posting: &ai.PostingUpdate{Location: str("remote"), EngagementType: str("three days a week")},
	})
	assert.Equal(t, Report{"role_postings": true}, report)
	require.Len(t, store.postings, 1, "updates go to the existing draft")
	assert.Equal(t, "remote", *store.postings[0].Location)
	assert.Equal(t, "fractional", *store.postings[0].EngagementType)
}

func TestOneTableFailureDoesNotBlockOthers(t *testing.T) {
	store := newFakeStore()
	store.profileErr = errors.New("db down")
	r := newTestReconciler(store)

	report := r.Apply(context.Background(), "u1", "i1", ai.Updates{
		Profile: &ai.ProfileUpdate{FirstName: str("Sam")},
		Role:    &ai.RoleUpdate{Role: "hirer", Confidence: f64(0.9)},
	})

	assert.Equal(t, Report{"people_profiles": false, "role_assignments": true}, report)
	require.NotNil(t, store.roles["u1"])
}

func TestApplyNoUserOrEmptyUpdates(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	assert.Empty(t, r.Apply(context.Background(), "", "i1", ai.Updates{
		Profile: &ai.ProfileUpdate{FirstName: str("Sam")},
	}))
	assert.Empty(t, r.Apply(context.Background(), "u1", "i1", ai.Updates{}))
	assert.Empty(t, store.profiles)
}
