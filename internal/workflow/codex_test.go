package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

type fakeCRM struct {
	existingContact *hubspot.Object
	deals           []hubspot.Object

	createdContacts  []map[string]string
	updatedContacts  map[string]map[string]string
	createdCompanies []map[string]string
	createdDeals     []map[string]string
	dealAssociations [][]hubspot.Association
	associations     []string
	timelineEvents   []hubspot.TimelineEvent
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{updatedContacts: make(map[string]map[string]string)}
}

func (f *fakeCRM) FindContactByEmail(_ context.Context, _ string) (*hubspot.Object, error) {
	return f.existingContact, nil
}

func (f *fakeCRM) CreateContact(_ context.Context, properties map[string]string) (*hubspot.Object, error) {
	f.createdContacts = append(f.createdContacts, properties)
	return &hubspot.Object{ID: "contact-1", Properties: properties}, nil
}

func (f *fakeCRM) UpdateContact(_ context.Context, contactID string, properties map[string]string) (*hubspot.Object, error) {
	f.updatedContacts[contactID] = properties
	return &hubspot.Object{ID: contactID, Properties: properties}, nil
}

func (f *fakeCRM) CreateCompany(_ context.Context, properties map[string]string) (*hubspot.Object, error) {
	f.createdCompanies = append(f.createdCompanies, properties)
	return &hubspot.Object{ID: "company-1", Properties: properties}, nil
}

func (f *fakeCRM) CreateDeal(_ context.Context, properties map[string]string, associations []hubspot.Association) (*hubspot.Object, error) {
	f.createdDeals = append(f.createdDeals, properties)
	f.dealAssociations = append(f.dealAssociations, associations)
	return &hubspot.Object{ID: "deal-1", Properties: properties}, nil
}

func (f *fakeCRM) Associate(_ context.Context, fromObject, fromID, toObject, toID string, associationType int) error {
	f.associations = append(f.associations, fromObject+":"+fromID+"->"+toObject+":"+toID)
	return nil
}

func (f *fakeCRM) LogTimelineEvent(_ context.Context, event hubspot.TimelineEvent) error {
	f.timelineEvents = append(f.timelineEvents, event)
	return nil
}

func (f *fakeCRM) FetchWeeklySummary(_ context.Context, _ time.Time) ([]hubspot.Object, error) {
	return f.deals, nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func TestProcessLeadCreatesContactCompanyAndDeal(t *testing.T) {
	crm := newFakeCRM()
	notifier := &fakeNotifier{}
	cx := NewCodex(crm, notifier, "")

	amount := 1499.0
	deal, err := cx.ProcessLead(context.Background(), LeadPayload{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@acme.test",
		Company:   "Acme Corp",
		DealName:  "Acme onboarding",
		Amount:    &amount,
		Source:    "webform",
	})
	require.NoError(t, err)
	require.NotNil(t, deal)

	require.Len(t, crm.createdContacts, 1)
	assert.Equal(t, "jane@acme.test", crm.createdContacts[0]["email"])
	assert.Equal(t, "lead", crm.createdContacts[0]["lifecyclestage"])
	assert.Empty(t, crm.updatedContacts)

	require.Len(t, crm.createdCompanies, 1)
	assert.Equal(t, "Acme Corp", crm.createdCompanies[0]["name"])
	assert.Equal(t, []string{"contacts:contact-1->companies:company-1"}, crm.associations)

	require.Len(t, crm.createdDeals, 1)
	assert.Equal(t, "Acme onboarding", crm.createdDeals[0]["dealname"])
	assert.Equal(t, "appointmentscheduled", crm.createdDeals[0]["dealstage"])
	assert.Equal(t, "1499", crm.createdDeals[0]["amount"])

	require.Len(t, crm.dealAssociations, 1)
	assert.ElementsMatch(t, []hubspot.Association{
		{TypeID: 3, ToID: "contact-1"},
		{TypeID: 341, ToID: "company-1"},
	}, crm.dealAssociations[0])

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "New deal booked: Acme onboarding ($1499.00) by Jane Doe via webform.", notifier.messages[0])

	require.Len(t, crm.timelineEvents, 1)
	assert.Equal(t, "contact-1", crm.timelineEvents[0].ObjectID)
	assert.Equal(t, "momentum-touchpoint", crm.timelineEvents[0].EventTemplateID)
	assert.Contains(t, crm.timelineEvents[0].Tokens["note"], "via webform")
}

func TestProcessLeadUpdatesExistingContact(t *testing.T) {
	crm := newFakeCRM()
	crm.existingContact = &hubspot.Object{ID: "contact-77", Properties: map[string]string{"email": "jane@acme.test"}}
	cx := NewCodex(crm, &fakeNotifier{}, "")

	_, err := cx.ProcessLead(context.Background(), LeadPayload{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@acme.test",
	})
	require.NoError(t, err)

	assert.Empty(t, crm.createdContacts)
	require.Contains(t, crm.updatedContacts, "contact-77")
	assert.Equal(t, "Jane", crm.updatedContacts["contact-77"]["firstname"])

	// No company on the payload, so only the contact association is made.
	assert.Empty(t, crm.createdCompanies)
	require.Len(t, crm.dealAssociations, 1)
	assert.Equal(t, []hubspot.Association{{TypeID: 3, ToID: "contact-77"}}, crm.dealAssociations[0])
}

func TestProcessLeadDefaultDealName(t *testing.T) {
	crm := newFakeCRM()
	cx := NewCodex(crm, &fakeNotifier{}, "")

	_, err := cx.ProcessLead(context.Background(), LeadPayload{
		FirstName: "Sam",
		LastName:  "Lee",
		Email:     "sam@lee.test",
		Source:    "referral",
	})
	require.NoError(t, err)

	require.Len(t, crm.createdDeals, 1)
	assert.Equal(t, "Sam Lee - referral", crm.createdDeals[0]["dealname"])
	assert.NotContains(t, crm.createdDeals[0], "amount")
}

func TestLeadPayloadUnmarshal(t *testing.T) {
	var fromString LeadPayload
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.test","amount":"1499.50"}`), &fromString))
	require.NotNil(t, fromString.Amount)
	assert.InDelta(t, 1499.50, *fromString.Amount, 1e-9)

	var fromNumber LeadPayload
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.test","amount":250}`), &fromNumber))
	require.NotNil(t, fromNumber.Amount)
	assert.InDelta(t, 250.0, *fromNumber.Amount, 1e-9)

	var missing LeadPayload
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.test"}`), &missing))
	assert.Nil(t, missing.Amount)

	var bad LeadPayload
	assert.Error(t, json.Unmarshal([]byte(`{"email":"a@b.test","amount":"lots"}`), &bad))
}

func TestWeeklyReport(t *testing.T) {
	crm := newFakeCRM()
	crm.deals = []hubspot.Object{
		{ID: "1", Properties: map[string]string{"dealstage": "closedwon", "amount": "999.00"}},
		{ID: "2", Properties: map[string]string{"dealstage": "closedwon", "amount": "1499.00"}},
		{ID: "3", Properties: map[string]string{"dealstage": "contractsent", "amount": "500"}},
	}
	cx := NewCodex(crm, &fakeNotifier{}, "")

	anchor := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	summary, err := cx.WeeklyReport(context.Background(), anchor)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalDeals)
	assert.Equal(t, 2, summary.ByStage["closedwon"])
	assert.Equal(t, 1, summary.ByStage["contractsent"])
	assert.InDelta(t, 2998.0, summary.TotalAmount, 1e-9)
}
