package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// SlackNotifier posts alert digests to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, digest Digest) error {
	attachments := make([]slackAttachment, 0, len(digest.Alerts))
	for _, a := range digest.Alerts {
		attachments = append(attachments, slackAttachment{
			Color: slackColor(a.Priority),
			Title: fmt.Sprintf("%s: %s", a.Issue, a.CampaignName),
			Fields: []slackField{
				{Title: "Priority", Value: string(a.Priority), Short: true},
				{Title: "Channel", Value: a.Channel, Short: true},
				{Title: "Current", Value: a.CurrentValue, Short: true},
				{Title: "Action", Value: a.RecommendedAction, Short: false},
			},
			Footer: "Campaign Refresh",
			Ts:     digest.GeneratedAt.Unix(),
		})
	}

	payload := slackPayload{
		Channel: s.channel,
		Text: fmt.Sprintf("%d campaign alert(s), %d high priority",
			len(digest.Alerts), digest.HighPriority()),
		Attachments: attachments,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func slackColor(p model.Priority) string {
	if p == model.PriorityHigh {
		return "#ff0000" // red
	}
	return "#ff9900" // orange
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
