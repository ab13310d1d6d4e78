package insta

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

const (
	graphAPIURL    = "https://graph.instagram.com/v24.0"
	requestTimeout = 15 * time.Second
)

// InstaBot talks to the Instagram Messaging API for one professional account.
type InstaBot struct {
	log         *slog.Logger
	client      *resty.Client
	accessToken string
	verifyToken string
	appSecret   string
}

// WebhookPayload is the incoming webhook envelope from Instagram
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Recipient struct {
				ID string `json:"id"`
			} `json:"recipient"`
			Timestamp int64 `json:"timestamp"`
			Message   *struct {
				Mid    string `json:"mid"`
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo,omitempty"`
			} `json:"message,omitempty"`
		} `json:"messaging"`
	} `json:"entry"`
}

// sendMessageRequest is the request body for sending a message
type sendMessageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type sendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type conversationsResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Messages struct {
			Data []struct {
				ID   string `json:"id"`
				From struct {
					ID       string `json:"id"`
					Username string `json:"username"`
				} `json:"from"`
				Message string `json:"message"`
				Created string `json:"created_time"`
			} `json:"data"`
		} `json:"messages"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

func NewInstaBot(accessToken, verifyToken, appSecret string, log *slog.Logger) *InstaBot {
	return &InstaBot{
		log:         log.With(sl.Module("instabot")),
		client:      resty.New().SetBaseURL(graphAPIURL).SetTimeout(requestTimeout).SetAuthToken(accessToken),
		accessToken: accessToken,
		verifyToken: verifyToken,
		appSecret:   appSecret,
	}
}

func (b *InstaBot) Platform() string {
	return entity.PlatformInstagram
}

// VerifyWebhook handles the GET verification handshake.
func (b *InstaBot) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == b.verifyToken {
		b.log.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	b.log.Warn("webhook verification failed",
		slog.String("mode", mode),
		slog.Bool("token_match", token == b.verifyToken),
	)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// ParseWebhook validates the signature and flattens the payload into inbound
// messages. Echoes of our own sends are skipped.
func (b *InstaBot) ParseWebhook(body []byte, signature string) ([]entity.InboundMessage, error) {
	if b.appSecret != "" && !b.verifySignature(body, signature) {
		return nil, fmt.Errorf("invalid webhook signature")
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	if payload.Object != "instagram" {
		return nil, nil
	}

	var out []entity.InboundMessage
	for _, entry := range payload.Entry {
		for _, messaging := range entry.Messaging {
			msg := messaging.Message
			if msg == nil || msg.IsEcho || msg.Text == "" {
				continue
			}
			out = append(out, entity.InboundMessage{
				PlatformMsgID:  msg.Mid,
				PlatformChatID: messaging.Sender.ID,
				SenderID:       messaging.Sender.ID,
				Text:           msg.Text,
				Type:           "text",
				Timestamp:      time.UnixMilli(messaging.Timestamp),
			})
		}
	}
	return out, nil
}

// Send delivers one direct message and returns the platform message id.
func (b *InstaBot) Send(ctx context.Context, _, recipientID, text string) (string, error) {
	var reqBody sendMessageRequest
	reqBody.Recipient.ID = recipientID
	reqBody.Message.Text = text

	var result sendMessageResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&result).
		Post("/me/messages")
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("graph api error (status %d): %s", resp.StatusCode(), resp.String())
	}

	b.log.Info("message sent", slog.String("recipient", recipientID))
	return result.MessageID, nil
}

// Health checks that the access token still resolves the account.
func (b *InstaBot) Health(ctx context.Context) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,username").
		Get("/me")
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("graph api error (status %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SyncMessages pulls one page of direct-message history.
func (b *InstaBot) SyncMessages(ctx context.Context, _, cursor string) ([]entity.InboundMessage, string, bool, error) {
	req := b.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,messages{id,from,message,created_time}").
		SetQueryParam("platform", "instagram")
	if cursor != "" {
		req.SetQueryParam("after", cursor)
	}

	var result conversationsResponse
	resp, err := req.SetResult(&result).Get("/me/conversations")
	if err != nil {
		return nil, "", false, fmt.Errorf("sync request: %w", err)
	}
	if resp.IsError() {
		return nil, "", false, fmt.Errorf("graph api error (status %d): %s", resp.StatusCode(), resp.String())
	}

	var out []entity.InboundMessage
	for _, convo := range result.Data {
		for _, m := range convo.Messages.Data {
			if m.Message == "" {
				continue
			}
			out = append(out, entity.InboundMessage{
				PlatformMsgID:  m.ID,
				PlatformChatID: m.From.ID,
				SenderID:       m.From.ID,
				SenderName:     m.From.Username,
				Text:           m.Message,
				Type:           "text",
				Timestamp:      graphTimestamp(m.Created),
			})
		}
	}
	next := result.Paging.Cursors.After
	hasMore := result.Paging.Next != ""
	return out, next, hasMore, nil
}

// verifySignature checks the X-Hub-Signature-256 header against the body.
func (b *InstaBot) verifySignature(body []byte, signature string) bool {
	if len(signature) < 8 || signature[:7] != "sha256=" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(b.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature[7:]), []byte(expected))
}

func graphTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now()
	}
	return t
}
