package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

const (
	graphAPIURL    = "https://graph.facebook.com/v21.0"
	requestTimeout = 15 * time.Second
)

// WhatsAppBot talks to the WhatsApp Cloud API for one business phone number.
type WhatsAppBot struct {
	log           *slog.Logger
	client        *resty.Client
	accessToken   string
	verifyToken   string
	appSecret     string
	phoneNumberID string
}

// WebhookPayload is the incoming webhook envelope from WhatsApp
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Metadata         struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text,omitempty"`
				} `json:"messages"`
			} `json:"value"`
			Field string `json:"field"`
		} `json:"changes"`
	} `json:"entry"`
}

// sendMessageRequest is the request body for sending a text message
type sendMessageRequest struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type conversationsResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Messages struct {
			Data []struct {
				ID      string `json:"id"`
				From    string `json:"from"`
				To      string `json:"to"`
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

func NewWhatsAppBot(accessToken, verifyToken, appSecret, phoneNumberID string, log *slog.Logger) *WhatsAppBot {
	return &WhatsAppBot{
		log:           log.With(sl.Module("whatsappbot")),
		client:        resty.New().SetBaseURL(graphAPIURL).SetTimeout(requestTimeout).SetAuthToken(accessToken),
		accessToken:   accessToken,
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		phoneNumberID: phoneNumberID,
	}
}

func (b *WhatsAppBot) Platform() string {
	return entity.PlatformWhatsApp
}

// VerifyWebhook handles the GET verification handshake.
func (b *WhatsAppBot) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
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
// messages. Non-text entries are skipped.
func (b *WhatsAppBot) ParseWebhook(body []byte, signature string) ([]entity.InboundMessage, error) {
	if b.appSecret != "" && !b.verifySignature(body, signature) {
		return nil, fmt.Errorf("invalid webhook signature")
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	if payload.Object != "whatsapp_business_account" {
		return nil, nil
	}

	var out []entity.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, message := range change.Value.Messages {
				if message.Type != "text" || message.Text == nil || message.Text.Body == "" {
					continue
				}
				out = append(out, entity.InboundMessage{
					PlatformMsgID:  message.ID,
					PlatformChatID: message.From,
					SenderID:       message.From,
					SenderName:     names[message.From],
					Text:           message.Text.Body,
					Type:           message.Type,
					Timestamp:      unixTimestamp(message.Timestamp),
				})
			}
		}
	}
	return out, nil
}

// Send delivers one text message and returns the platform message id.
func (b *WhatsAppBot) Send(ctx context.Context, _, recipientID, text string) (string, error) {
	reqBody := sendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipientID,
		Type:             "text",
	}
	reqBody.Text.Body = text

	var result sendMessageResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&result).
		Post(fmt.Sprintf("/%s/messages", b.phoneNumberID))
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("graph api error (status %d): %s", resp.StatusCode(), resp.String())
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("graph api returned no message id")
	}

	b.log.Info("message sent", slog.String("recipient", recipientID))
	return result.Messages[0].ID, nil
}

// Health checks that the access token still resolves the phone number.
func (b *WhatsAppBot) Health(ctx context.Context) error {
	resp, err := b.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/%s", b.phoneNumberID))
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("graph api error (status %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SyncMessages pulls one page of conversation history from the Graph API.
func (b *WhatsAppBot) SyncMessages(ctx context.Context, _, cursor string) ([]entity.InboundMessage, string, bool, error) {
	req := b.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,messages{id,from,to,message,created_time}")
	if cursor != "" {
		req.SetQueryParam("after", cursor)
	}

	var result conversationsResponse
	resp, err := req.SetResult(&result).Get(fmt.Sprintf("/%s/conversations", b.phoneNumberID))
	if err != nil {
		return nil, "", false, fmt.Errorf("sync request: %w", err)
	}
	if resp.IsError() {
		return nil, "", false, fmt.Errorf("graph api error (status %d): %s", resp.StatusCode(), resp.String())
	}

	var out []entity.InboundMessage
	for _, convo := range result.Data {
		for _, m := range convo.Messages.Data {
			if m.From == b.phoneNumberID || m.Message == "" {
				continue
			}
			out = append(out, entity.InboundMessage{
				PlatformMsgID:  m.ID,
				PlatformChatID: m.From,
				SenderID:       m.From,
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
func (b *WhatsAppBot) verifySignature(body []byte, signature string) bool {
	if len(signature) < 8 || signature[:7] != "sha256=" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(b.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature[7:]), []byte(expected))
}

func unixTimestamp(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(sec, 0)
}

func graphTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now()
	}
	return t
}
