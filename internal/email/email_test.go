package email

import (
	"log/slog"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
)

var shopIdentity = Identity{From: "Shop <no-reply@shop.example>", ReplyTo: "support@shop.example"}

func TestResendRequest_CarriesIdentityAndBothBodies(t *testing.T) {
	s := &ResendSender{env: "production", identity: shopIdentity}

	req := s.request(Message{To: "a@b.c", Subject: "Your sign-in link", HTML: "<p>hi</p>", Text: "hi", Tag: "magic_link"})

	assert.Equal(t, "Shop <no-reply@shop.example>", req.From)
	assert.Equal(t, "support@shop.example", req.ReplyTo)
	assert.Equal(t, []string{"a@b.c"}, req.To)
	assert.Equal(t, "Your sign-in link", req.Subject)
	assert.Equal(t, "<p>hi</p>", req.Html)
	assert.Equal(t, "hi", req.Text)
	assert.Equal(t, []resend.Tag{{Name: "env", Value: "production"}, {Name: "flow", Value: "magic_link"}}, req.Tags)
}

func TestResendRequest_NonProductionSubjectNamesEnv(t *testing.T) {
	s := &ResendSender{env: "staging", identity: shopIdentity}

	req := s.request(Message{To: "a@b.c", Subject: "Your sign-in link"})

	assert.Equal(t, "[staging] Your sign-in link", req.Subject)
	assert.Equal(t, []resend.Tag{{Name: "env", Value: "staging"}}, req.Tags)
}

func TestNewSender_PicksByEnv(t *testing.T) {
	local := NewSender(SenderConfig{Env: "local"}, slog.Default())
	assert.IsType(t, &LogSender{}, local)

	staging := NewSender(SenderConfig{Env: "staging", APIKey: "re_test", Identity: shopIdentity}, slog.Default())
	rs, ok := staging.(*ResendSender)
	if assert.True(t, ok) {
		assert.Equal(t, shopIdentity, rs.identity)
	}
}
