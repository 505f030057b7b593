package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type TwilioSender struct {
	cfg TwilioConfig
	api *twilio.RestClient
}

// NewTwilioSender принимает http-клиент, чтобы можно было подменить транспорт.
func NewTwilioSender(cfg TwilioConfig, httpClient *http.Client) *TwilioSender {
	base := &client.Client{
		Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(cfg.AccountSID)

	return &TwilioSender{
		cfg: cfg,
		api: twilio.NewRestClientWithParams(twilio.ClientParams{Client: base}),
	}
}

func (s *TwilioSender) Channel() Channel {
	return ChannelSMS
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetPathAccountSid(s.cfg.AccountSID)
	params.SetFrom(s.cfg.From)
	params.SetTo(msg.To)
	params.SetBody(msg.Body)

	if _, err := s.api.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("отправка SMS %s: %w", msg.To, err)
	}
	return nil
}
