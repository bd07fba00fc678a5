package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claim-link-service/models"

	"go.uber.org/zap"
)

const discordGold = 0xffd700

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields"`
	Timestamp   string              `json:"timestamp"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordWebhookSender posts a winner embed to a Discord channel webhook.
type DiscordWebhookSender struct {
	webhookURL string
	httpClient *http.Client
}

func NewDiscordWebhookSender(webhookURL string, httpClient *http.Client) *DiscordWebhookSender {
	return &DiscordWebhookSender{webhookURL: webhookURL, httpClient: httpClient}
}

func buildWinnerEmbed(n models.ClaimNotification) discordWebhookPayload {
	return discordWebhookPayload{Embeds: []discordEmbed{{
		Title:       "🏆 New Winner!",
		Description: "🔥 **Fastest hands in the server!** 🚀\n\n🎉 **Congratulations:**",
		Color:       discordGold,
		Fields: []discordEmbedField{
			{Name: "👤 Username", Value: fmt.Sprintf("`%s`", n.Username), Inline: true},
			{Name: "🆔 Discord ID", Value: fmt.Sprintf("`%s`", n.DiscordID), Inline: true},
			{Name: "🏅 Role Won", Value: fmt.Sprintf("`%s`", n.Reward)},
			{Name: "🔗 Link ID", Value: fmt.Sprintf("`%s`", n.LinkID)},
			{Name: "⏳ Won At", Value: fmt.Sprintf("<t:%d:F>", n.ClaimedAt.Unix())},
		},
		Timestamp: n.ClaimedAt.UTC().Format(time.RFC3339),
	}}}
}

func (s *DiscordWebhookSender) Send(ctx context.Context, n models.ClaimNotification) error {
	body, err := json.Marshal(buildWinnerEmbed(n))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// LogSender stands in when no webhook is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, n models.ClaimNotification) error {
	s.Logger.Info("winner (no webhook configured)",
		zap.String("link_id", n.LinkID),
		zap.String("username", n.Username),
		zap.String("discord_id", n.DiscordID),
		zap.String("reward", n.Reward),
	)
	return nil
}
