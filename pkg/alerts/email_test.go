package alerts_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/alerts"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

type sentMail struct {
	from    string
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendHTML(_ context.Context, from string, to []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{from: from, to: to, subject: subject, body: body})
	return nil
}

func sampleDigest() alerts.Digest {
	return alerts.Digest{
		GeneratedAt: time.Date(2026, 10, 15, 9, 5, 30, 0, time.UTC),
		Alerts: []model.AlertRecord{
			{
				Type: model.AlertCritical, CampaignID: "C1", CampaignName: "Spring <Promo>",
				Channel: "Facebook", Issue: alerts.IssueNegativeROI, CurrentValue: "-12.00%",
				RecommendedAction: alerts.ActionNegativeROI, Priority: model.PriorityHigh,
			},
			{
				Type: model.AlertWarning, CampaignID: "C2", CampaignName: "Retargeting",
				Channel: "Google Ads", Issue: alerts.IssueHighCostPerLead, CurrentValue: "$130.00",
				RecommendedAction: alerts.ActionHighCostPerLead, Priority: model.PriorityMedium,
			},
		},
	}
}

func TestEmailNotifier_Name(t *testing.T) {
	n := alerts.NewEmailNotifier(&fakeMailer{}, "a@example.com", []string{"b@example.com"})
	assert.Equal(t, "email", n.Name())
}

func TestEmailNotifier_Send(t *testing.T) {
	mailer := &fakeMailer{}
	recipients := []string{"marketing@company.com", "manager@company.com"}
	n := alerts.NewEmailNotifier(mailer, "reports@company.com", recipients)

	err := n.Send(context.Background(), sampleDigest())
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, "reports@company.com", msg.from)
	assert.Equal(t, recipients, msg.to)
	assert.Equal(t, "Marketing Campaign Alerts - 2026-10-15 09:05", msg.subject)
	assert.Contains(t, msg.body, "Total Alerts: 2")
	assert.Contains(t, msg.body, "Generated on: 2026-10-15 09:05:30")
}

func TestEmailNotifier_NoRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	n := alerts.NewEmailNotifier(mailer, "reports@company.com", nil)

	err := n.Send(context.Background(), sampleDigest())
	assert.Error(t, err)
	assert.Empty(t, mailer.sent)
}

func TestEmailNotifier_TransportError(t *testing.T) {
	n := alerts.NewEmailNotifier(&fakeMailer{err: errors.New("535 auth failed")}, "r@c.com", []string{"m@c.com"})
	err := n.Send(context.Background(), sampleDigest())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "535")
}

func TestRenderHTML(t *testing.T) {
	body, err := alerts.RenderHTML(sampleDigest())
	require.NoError(t, err)

	for _, col := range []string{"Priority", "Campaign", "Channel", "Issue", "Action Required"} {
		assert.Contains(t, body, "<th>"+col+"</th>")
	}
	assert.Contains(t, body, "#ff4444")
	assert.Contains(t, body, "#ffaa00")
	assert.Contains(t, body, "Spring &lt;Promo&gt;", "campaign names are escaped")
	assert.Contains(t, body, alerts.ActionHighCostPerLead)

	high := strings.Index(body, "#ff4444")
	medium := strings.Index(body, "#ffaa00")
	assert.Less(t, high, medium, "rows keep alert order")
}
