package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the one Twilio call we make. *twilioApi.ApiService
// satisfies it; tests pass a fake.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WhatsAppChannel sends the welcome text through Twilio's WhatsApp API.
type WhatsAppChannel struct {
	api  messageCreator
	from string
}

var _ Channel = (*WhatsAppChannel)(nil)

// NewWhatsAppChannel builds a Twilio client from an account SID and auth
// token. from is the sender number in E.164 form, without the
// "whatsapp:" prefix.
func NewWhatsAppChannel(accountSID, authToken, from string) *WhatsAppChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &WhatsAppChannel{api: client.Api, from: from}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

// WelcomeText is the fixed WhatsApp body.
func WelcomeText(name string) string {
	return fmt.Sprintf("Hello %s, welcome aboard!", name)
}

// Send ignores ctx because the Twilio client has no context-aware call.
// The client's own HTTP timeout bounds it instead.
func (c *WhatsAppChannel) Send(_ context.Context, r Recipient) error {
	if r.Phone == "" {
		return errors.New("whatsapp: recipient has no phone number")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + r.Phone)
	params.SetFrom("whatsapp:" + c.from)
	params.SetBody(WelcomeText(r.Name))

	if _, err := c.api.CreateMessage(params); err != nil {
		return fmt.Errorf("whatsapp: sending to %s: %w", r.Phone, err)
	}
	return nil
}
