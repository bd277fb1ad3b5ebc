// Package viber delivers article notifications through the Viber bot
// send_message endpoint.
package viber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mvelinov/newswatch"
)

// DefaultAPIURL is the Viber public-account message-send endpoint.
const DefaultAPIURL = "https://chatapi.viber.com/pa/send_message"

const sendTimeout = 10 * time.Second

// statusOK is the status value Viber returns for an accepted message.
const statusOK = 0

// message is the send_message request body.
type message struct {
	Receiver string `json:"receiver"`
	Type     string `json:"type"`
	Text     string `json:"text"`
	Media    string `json:"media,omitempty"`
}

// apiResponse is the subset of the send_message response we inspect.
type apiResponse struct {
	Status        int    `json:"status"`
	StatusMessage string `json:"status_message"`
}

// Client sends messages on behalf of one bot to one receiver. Every delivery
// failure, whether transport, timeout or a non-ok provider status, becomes a
// false return plus a logged diagnostic; callers never see an error.
type Client struct {
	// APIURL is the message-send endpoint. Tests point it at a local server.
	APIURL string

	token    string
	receiver string
	client   *http.Client
	log      *zap.Logger
}

var _ newswatch.Notifier = (*Client)(nil)

// New creates a client that authenticates with token and delivers to the
// given receiver (a user or group chat ID).
func New(token, receiver string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		APIURL:   DefaultAPIURL,
		token:    token,
		receiver: receiver,
		client:   &http.Client{Timeout: sendTimeout},
		log:      log,
	}
}

// SendArticle notifies the receiver about one article as a link-with-caption
// message. It reports whether the provider acknowledged the delivery.
func (c *Client) SendArticle(article newswatch.Article) bool {
	return c.send(formatArticle(article), article.URL)
}

// SendSummary reports run totals. A run with no new articles sends nothing
// and counts as success.
func (c *Client) SendSummary(newCount, totalCount int) bool {
	if newCount == 0 {
		c.log.Info("no new articles to report")
		return true
	}

	text := fmt.Sprintf("✅ Проверих за новини от детските градини.\n\n"+
		"📊 Нови съобщения: %d\n"+
		"📁 Общо следени: %d",
		newCount, totalCount)
	return c.send(text, "")
}

// formatArticle builds the notification text: a fixed header line with the
// title, then optional date and summary lines.
func formatArticle(article newswatch.Article) string {
	var b strings.Builder
	b.WriteString("📰 *Ново съобщение*\n\n")
	b.WriteString(article.Title)

	if article.Date != "" {
		b.WriteString("\n📅 ")
		b.WriteString(article.Date)
	}
	if article.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(article.Summary)
		b.WriteString("...")
	}
	return b.String()
}

func (c *Client) send(text, mediaURL string) bool {
	msg := message{
		Receiver: c.receiver,
		Type:     "text",
		Text:     text,
	}
	if mediaURL != "" {
		msg.Type = "url"
		msg.Media = mediaURL
	}

	body, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal viber message", zap.Error(err))
		return false
	}

	req, err := http.NewRequest(http.MethodPost, c.APIURL, bytes.NewReader(body))
	if err != nil {
		c.log.Error("failed to create viber request", zap.Error(err))
		return false
	}
	req.Header.Set("X-Viber-Auth-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("failed to send viber message", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("viber API returned unexpected status", zap.Int("http_status", resp.StatusCode))
		return false
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Error("failed to decode viber response", zap.Error(err))
		return false
	}
	if out.Status != statusOK {
		c.log.Error("viber API rejected message",
			zap.Int("status", out.Status),
			zap.String("status_message", out.StatusMessage))
		return false
	}

	c.log.Info("message sent successfully")
	return true
}
